package facts

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Kind is a bitmask of the shapes an entry matched
type Kind uint8

const (
	// KindTriple is {"source", "relation", "target"}.
	KindTriple Kind = 1 << iota
	// KindGrouped is {"source", "<RELATION>": [targets...]}.
	KindGrouped
)

// Fact is one source-depends-on-target observation
type Fact struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// Entry is the decoded form of one dependency entry. An entry may match
// both shapes; the explicit triple, when present, comes first in Facts.
type Entry struct {
	Kind    Kind
	Source  string
	Facts   []Fact
	Skipped int // blank or non-string targets dropped from grouped arrays
}

// Has reports whether the entry matched shape k
func (e Entry) Has(k Kind) bool { return e.Kind&k != 0 }

// relationIndex resolves relation keys case-insensitively, keeping the
// configured order so edge insertion is deterministic.
type relationIndex struct {
	order []string
}

func newRelationIndex(relations []string) relationIndex {
	seen := make(map[string]bool, len(relations))
	idx := relationIndex{}
	for _, r := range relations {
		key := strings.ToLower(strings.TrimSpace(r))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		idx.order = append(idx.order, key)
	}
	return idx
}

// DecodeEntry classifies one raw entry. ok is false for anything that is not
// a JSON object carrying either a non-blank source or a complete triple.
func DecodeEntry(raw json.RawMessage, relations []string) (Entry, bool) {
	return decodeEntry(raw, newRelationIndex(relations))
}

func decodeEntry(raw json.RawMessage, idx relationIndex) (Entry, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Entry{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Entry{}, false
	}
	rawSource, hasSource := fields["source"]
	if !hasSource {
		return Entry{}, false
	}

	var e Entry
	e.Source = decodeScalar(rawSource)

	_, hasRelation := fields["relation"]
	rawTarget, hasTarget := fields["target"]
	if hasRelation && hasTarget {
		target := decodeScalar(rawTarget)
		if !isBlank(e.Source) && !isBlank(target) {
			e.Kind |= KindTriple
			e.Facts = append(e.Facts, Fact{
				Source:   e.Source,
				Relation: decodeScalar(fields["relation"]),
				Target:   target,
			})
		}
	}

	if isBlank(e.Source) {
		return e, e.Kind != 0
	}

	byLower := make(map[string][]string, len(fields))
	for key := range fields {
		lower := strings.ToLower(key)
		byLower[lower] = append(byLower[lower], key)
	}
	for _, keys := range byLower {
		sort.Strings(keys)
	}
	for _, rel := range idx.order {
		for _, key := range byLower[rel] {
			targets, ok := decodeArray(fields[key])
			if !ok {
				continue
			}
			e.Kind |= KindGrouped
			for _, t := range targets {
				target := decodeScalar(t)
				if isBlank(target) {
					e.Skipped++
					continue
				}
				e.Facts = append(e.Facts, Fact{Source: e.Source, Relation: key, Target: target})
			}
		}
	}
	// a source with no relation arrays is a valid, empty grouped entry
	return e, true
}

// decodeScalar renders strings, numbers and booleans as text; null, objects
// and arrays become "".
func decodeScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		return decodeString(raw)
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
