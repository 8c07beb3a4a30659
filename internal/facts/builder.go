package facts

import (
	"log/slog"

	"impactanalyzer/core/internal/graph"
)

// BuildStats summarizes one Apply call
type BuildStats struct {
	Entries       int `json:"entries"`
	Skipped       int `json:"skipped"`
	Edges         int `json:"edges"`
	UniqueSources int `json:"unique_sources"`
}

// Add accumulates other into s. UniqueSources is summed, so it may count a
// source once per input.
func (s *BuildStats) Add(other BuildStats) {
	s.Entries += other.Entries
	s.Skipped += other.Skipped
	s.Edges += other.Edges
	s.UniqueSources += other.UniqueSources
}

// Builder converts fact documents into AddEdge calls on a graph.
type Builder struct {
	relations relationIndex
	logger    *slog.Logger
}

// NewBuilder creates a builder that recognizes the given relation keys in
// grouped entries. Nil or empty relations fall back to DefaultRelations.
func NewBuilder(relations []string, logger *slog.Logger) *Builder {
	if len(relations) == 0 {
		relations = DefaultRelations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{relations: newRelationIndex(relations), logger: logger}
}

// Apply adds every usable fact in doc to g. Malformed entries are logged and
// skipped; Apply never aborts part-way.
func (b *Builder) Apply(g *graph.Graph, doc *Document) BuildStats {
	var stats BuildStats
	if doc == nil {
		b.logger.Warn("fact document is null; nothing to build")
		return stats
	}

	b.logger.Info("processing dependency entries", "entries", len(doc.Entries))
	sources := make(map[string]struct{})
	for i, raw := range doc.Entries {
		stats.Entries++
		entry, ok := decodeEntry(raw, b.relations)
		if !ok {
			stats.Skipped++
			b.logger.Debug("skipping malformed dependency entry", "index", i)
			continue
		}
		if entry.Skipped > 0 {
			b.logger.Debug("dropped blank targets", "source", entry.Source, "count", entry.Skipped)
		}
		stats.Edges += b.applyFacts(g, entry.Facts, sources)
	}
	stats.UniqueSources = len(sources)

	b.logger.Info("finished building graph from facts",
		"unique_sources", stats.UniqueSources,
		"dependencies_added", stats.Edges,
		"skipped", stats.Skipped)
	return stats
}

// ApplyFacts adds pre-decoded facts, such as rows from the staging store.
func (b *Builder) ApplyFacts(g *graph.Graph, facts []Fact) BuildStats {
	sources := make(map[string]struct{})
	stats := BuildStats{Entries: len(facts)}
	stats.Edges = b.applyFacts(g, facts, sources)
	stats.Skipped = stats.Entries - stats.Edges
	stats.UniqueSources = len(sources)
	return stats
}

func (b *Builder) applyFacts(g *graph.Graph, facts []Fact, sources map[string]struct{}) int {
	added := 0
	for _, f := range facts {
		if err := g.AddEdge(f.Source, f.Target); err != nil {
			b.logger.Debug("skipping fact", "source", f.Source, "target", f.Target, "error", err)
			continue
		}
		sources[f.Source] = struct{}{}
		added++
		b.logger.Debug("added dependency", "source", f.Source, "relation", f.Relation, "target", f.Target)
	}
	return added
}
