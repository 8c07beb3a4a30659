// Package facts turns analyzer-produced dependency fact documents into
// graph mutations.
package facts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingSource is returned when the fact document does not exist.
// Callers treat it as "empty graph", not as a failure.
var ErrMissingSource = errors.New("fact source missing")

// DefaultRelations are the relation keys the upstream extractor emits for
// the grouped entry shape. Matching is case-insensitive.
var DefaultRelations = []string{
	"CALLS", "READS", "WRITES", "IMPLEMENTS", "EXTENDS", "USES_TYPE",
	"ANNOTATED_WITH", "THROWS", "CALLS_CONSTRUCTOR", "IMPORTS", "DEPENDS_ON_PACKAGE",
}

// Document is a parsed fact document: an optional repository label and the
// raw dependency entries, each decoded lazily by the Builder.
type Document struct {
	Repo    string
	Entries []json.RawMessage
}

type wrappedDocument struct {
	Repo         json.RawMessage `json:"repo"`
	Dependencies json.RawMessage `json:"dependencies"`
}

// ParseDocument accepts either {"repo": ..., "dependencies": [...]} or a bare
// array of entries. A null root, a non-array dependencies field or any other
// JSON value yields an empty document; only invalid JSON is an error.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Document{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("parsing fact document: invalid JSON")
	}

	switch trimmed[0] {
	case '[':
		entries, _ := decodeArray(trimmed)
		return &Document{Entries: entries}, nil
	case '{':
		var w wrappedDocument
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("parsing fact document: %w", err)
		}
		doc := &Document{Repo: decodeString(w.Repo)}
		doc.Entries, _ = decodeArray(w.Dependencies)
		return doc, nil
	default:
		return &Document{}, nil
	}
}

// Decode reads a whole fact document from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading fact document: %w", err)
	}
	return ParseDocument(data)
}

// LoadFile reads the fact document at path. A missing file returns an error
// wrapping ErrMissingSource.
func LoadFile(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no fact document configured: %w", ErrMissingSource)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("fact document %s: %w", path, ErrMissingSource)
		}
		return nil, fmt.Errorf("opening fact document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// decodeArray returns the elements of raw if it is a JSON array
func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// decodeString returns raw as a string if it is a JSON string, else ""
func decodeString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
