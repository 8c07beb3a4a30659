// Package engine owns the live dependency graph: it rebuilds it from the
// configured fact sources, swaps it in atomically and answers queries
// against whichever generation is current.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"impactanalyzer/core/internal/db"
	"impactanalyzer/core/internal/facts"
	"impactanalyzer/core/internal/graph"
	"impactanalyzer/core/internal/impact"
)

// Options configures an Engine
type Options struct {
	// FactsPath is the JSON fact document. Empty or missing means no facts from it.
	FactsPath string

	// DBPath is an optional SQLite staging store populated by `impactd ingest`.
	DBPath string

	// Relations overrides facts.DefaultRelations.
	Relations []string

	// Criticality is used as given, except a zero InDegreeThreshold takes
	// the default threshold.
	Criticality graph.CriticalityOptions

	// CacheSize is the number of impact responses kept per generation. 0 disables caching.
	CacheSize int

	// OnRebuild, if set, is called with the new stats after every successful swap.
	OnRebuild func(Stats)

	Logger *slog.Logger
}

// Stats describes the current graph generation
type Stats struct {
	Generation    uint64                  `json:"generation"`
	Repo          string                  `json:"repo,omitempty"`
	Nodes         int                     `json:"nodes"`
	Edges         int                     `json:"edges"`
	CriticalEdges int                     `json:"critical_edges"`
	Build         facts.BuildStats        `json:"build"`
	Criticality   graph.CriticalityReport `json:"criticality"`
	Sources       []string                `json:"sources"`
	BuiltAt       time.Time               `json:"built_at"`
	DurationMS    int64                   `json:"duration_ms"`
}

type state struct {
	graph *graph.Graph
	stats Stats
}

// Engine serves impact queries from an immutable graph generation.
// All methods are safe for concurrent use; rebuilds are serialized.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	builder *facts.Builder

	current    atomic.Pointer[state]
	generation atomic.Uint64
	rebuildMu  sync.Mutex

	cache *lru.Cache[string, *impact.MultiResponse]
}

// New creates an engine holding an empty generation-0 graph.
// Call Rebuild to load the fact sources.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Criticality.InDegreeThreshold == 0 {
		opts.Criticality.InDegreeThreshold = graph.DefaultCriticalityOptions().InDegreeThreshold
	}

	e := &Engine{
		opts:    opts,
		logger:  opts.Logger.With("component", "engine"),
		builder: facts.NewBuilder(opts.Relations, opts.Logger.With("component", "builder")),
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *impact.MultiResponse](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}
		e.cache = cache
	}
	e.current.Store(&state{graph: graph.New(), stats: Stats{Sources: []string{}}})
	return e, nil
}

// Rebuild constructs a fresh graph from every configured source, runs the
// criticality pass and swaps the result in. On error the previous
// generation stays live.
func (e *Engine) Rebuild(ctx context.Context) (Stats, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	ctx, span := startRebuildSpan(ctx, e.opts.FactsPath, e.opts.DBPath)
	defer span.End()
	start := time.Now()

	g := graph.New()
	var (
		fileStats, dbStats facts.BuildStats
		fileRepo, dbRepo   string
		fileUsed, dbUsed   bool
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		fileStats, fileRepo, fileUsed, err = e.loadFile(egCtx, g)
		return err
	})
	eg.Go(func() error {
		var err error
		dbStats, dbRepo, dbUsed, err = e.loadDB(egCtx, g)
		return err
	})
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordRebuildMetrics(ctx, time.Since(start), false)
		e.logger.Error("graph rebuild failed; keeping previous generation", "error", err)
		return Stats{}, fmt.Errorf("rebuilding graph: %w", err)
	}

	crit := graph.ComputeCriticality(g, e.opts.Criticality)

	build := fileStats
	build.Add(dbStats)
	sources := []string{}
	if fileUsed {
		sources = append(sources, e.opts.FactsPath)
	}
	if dbUsed {
		sources = append(sources, e.opts.DBPath)
	}

	stats := Stats{
		Generation:    e.generation.Add(1),
		Repo:          firstNonEmpty(fileRepo, dbRepo),
		Nodes:         g.NodeCount(),
		Edges:         g.EdgeCount(),
		CriticalEdges: g.CriticalEdgeCount(),
		Build:         build,
		Criticality:   crit,
		Sources:       sources,
		BuiltAt:       time.Now(),
		DurationMS:    time.Since(start).Milliseconds(),
	}
	e.current.Store(&state{graph: g, stats: stats})
	if e.cache != nil {
		e.cache.Purge()
	}

	span.SetAttributes(
		attribute.Int64("graph.generation", int64(stats.Generation)),
		attribute.Int("graph.nodes", stats.Nodes),
		attribute.Int("graph.edges", stats.Edges),
	)
	recordRebuildMetrics(ctx, time.Since(start), true)
	if e.opts.OnRebuild != nil {
		e.opts.OnRebuild(stats)
	}
	e.logger.Info("graph rebuilt",
		"generation", stats.Generation,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"critical_edges", stats.CriticalEdges,
		"skipped_entries", stats.Build.Skipped,
		"duration_ms", stats.DurationMS)
	return stats, nil
}

func (e *Engine) loadFile(ctx context.Context, g *graph.Graph) (facts.BuildStats, string, bool, error) {
	if e.opts.FactsPath == "" {
		return facts.BuildStats{}, "", false, nil
	}
	doc, err := facts.LoadFile(e.opts.FactsPath)
	if errors.Is(err, facts.ErrMissingSource) {
		e.logger.Warn("fact file not found; graph will not include it", "path", e.opts.FactsPath)
		return facts.BuildStats{}, "", false, nil
	}
	if err != nil {
		return facts.BuildStats{}, "", false, err
	}
	if err := ctx.Err(); err != nil {
		return facts.BuildStats{}, "", false, err
	}
	return e.builder.Apply(g, doc), doc.Repo, true, nil
}

func (e *Engine) loadDB(ctx context.Context, g *graph.Graph) (facts.BuildStats, string, bool, error) {
	if e.opts.DBPath == "" {
		return facts.BuildStats{}, "", false, nil
	}
	if _, err := os.Stat(e.opts.DBPath); errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("fact store not found; graph will not include it", "path", e.opts.DBPath)
		return facts.BuildStats{}, "", false, nil
	}

	store, err := db.OpenDB(e.opts.DBPath)
	if err != nil {
		return facts.BuildStats{}, "", false, err
	}
	defer store.Close()

	list, err := store.AllFacts()
	if err != nil {
		return facts.BuildStats{}, "", false, fmt.Errorf("reading staged facts: %w", err)
	}
	repo, err := store.Repo()
	if err != nil {
		return facts.BuildStats{}, "", false, fmt.Errorf("reading staged repo: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return facts.BuildStats{}, "", false, err
	}
	stats := e.builder.ApplyFacts(g, list)
	e.logger.Info("loaded staged facts", "path", e.opts.DBPath, "facts", len(list), "edges", stats.Edges)
	return stats, repo, true, nil
}

// Impact answers a multi-seed query against the current generation.
func (e *Engine) Impact(ctx context.Context, q impact.Query) (*impact.MultiResponse, error) {
	ctx, span := startQuerySpan(ctx, len(q.Seeds))
	defer span.End()
	start := time.Now()

	st := e.current.Load()
	key := cacheKey(st.stats.Generation, q)
	if e.cache != nil {
		if resp, ok := e.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("impact.cached", true))
			recordQueryMetrics(ctx, time.Since(start), true)
			return resp, nil
		}
	}

	resp, err := impact.Assemble(st.graph, q)
	if err != nil {
		span.SetAttributes(attribute.String("impact.error", err.Error()))
		recordQueryMetrics(ctx, time.Since(start), false)
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, resp)
	}

	span.SetAttributes(
		attribute.Int("impact.clusters", len(resp.Graphs)),
		attribute.Int("impact.nodes", resp.NodeCount()),
	)
	recordQueryMetrics(ctx, time.Since(start), false)
	e.logger.Debug("impact query answered",
		"seeds", q.Seeds,
		"clusters", len(resp.Graphs),
		"nodes", resp.NodeCount(),
		"generation", st.stats.Generation)
	return resp, nil
}

// WithDocumentRepo fills q.Repo from the current generation's repo label
// when the caller supplied none. An explicit value, even "", is kept.
func (e *Engine) WithDocumentRepo(q impact.Query) impact.Query {
	if q.Repo != nil {
		return q
	}
	if repo := e.Repo(); repo != "" {
		q.Repo = &repo
	}
	return q
}

// Graph returns the current generation's graph. Callers must not mutate it.
func (e *Engine) Graph() *graph.Graph {
	return e.current.Load().graph
}

// Stats returns the current generation's build summary.
func (e *Engine) Stats() Stats {
	return e.current.Load().stats
}

// Repo returns the repository label of the current generation.
func (e *Engine) Repo() string {
	return e.current.Load().stats.Repo
}

// FindNodes lists nodes of the current generation matching partial.
func (e *Engine) FindNodes(partial string) []*graph.Node {
	return e.Graph().FindNodes(partial)
}

// Analyze runs the topology and fragility report on the current generation,
// optionally restricted to one top-level namespace.
func (e *Engine) Analyze(namespace string, cfg *graph.AnalyzerConfig) *graph.AnalysisReport {
	snap := graph.NewSnapshot(e.Graph())
	if namespace != "" {
		snap = snap.FilterToNamespace(namespace)
	}
	return graph.Analyze(snap, cfg)
}

// cacheKey identifies a query within one generation. Every field is
// length-prefixed, so seed text cannot imitate a field boundary.
func cacheKey(generation uint64, q impact.Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "g%d|n%d|", generation, len(q.Seeds))
	for _, s := range q.Seeds {
		writeField(&b, s)
	}
	writeOptional(&b, q.TestPlan)
	writeOptional(&b, q.Repo)
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	fmt.Fprintf(b, "%d:%s", len(s), s)
}

func writeOptional(b *strings.Builder, s *string) {
	if s == nil {
		b.WriteString("-")
		return
	}
	b.WriteString("+")
	writeField(b, *s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
