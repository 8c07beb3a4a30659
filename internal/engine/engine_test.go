package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactanalyzer/core/internal/db"
	"impactanalyzer/core/internal/facts"
	"impactanalyzer/core/internal/graph"
	"impactanalyzer/core/internal/impact"
	"impactanalyzer/core/internal/logging"
)

const shopFacts = `{
	"repo": "shop",
	"dependencies": [
		{"source": "com.shop.OrderService", "relation": "CALLS", "target": "com.shop.OrderRepository"},
		{"source": "com.shop.OrderRepository", "READS": ["db.orders"]},
		{"source": "com.shop.BillingService", "CALLS": ["com.shop.OrderService", ""]},
		null
	]
}`

func writeFacts(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "dependency-graph.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	opts.Logger = logging.Discard()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestNew_EmptyGeneration(t *testing.T) {
	e := newEngine(t, Options{})
	assert.Equal(t, uint64(0), e.Stats().Generation)
	assert.Equal(t, 0, e.Graph().NodeCount())

	_, err := e.Impact(context.Background(), impact.Query{Seeds: []string{"x"}})
	assert.ErrorIs(t, err, impact.ErrNotFound)
}

func TestRebuild_FromFile(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{
		FactsPath:   path,
		Criticality: graph.DefaultCriticalityOptions(),
		CacheSize:   8,
	})

	stats, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, "shop", stats.Repo)
	assert.Equal(t, "shop", e.Repo())
	assert.Equal(t, 4, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 4, stats.Build.Entries)
	assert.Equal(t, 1, stats.Build.Skipped)
	assert.Equal(t, []string{path}, stats.Sources)

	// com -> db crosses namespaces
	assert.Equal(t, 1, stats.CriticalEdges)
	meta, ok := e.Graph().EdgeMetadata("com.shop.OrderRepository", "db.orders")
	require.True(t, ok)
	assert.True(t, meta.Critical)
}

func TestRebuild_MissingFileYieldsEmptyGraph(t *testing.T) {
	e := newEngine(t, Options{FactsPath: filepath.Join(t.TempDir(), "absent.json")})

	stats, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, 0, stats.Nodes)
	assert.Empty(t, stats.Sources)
}

func TestRebuild_FailureKeepsPreviousGeneration(t *testing.T) {
	dir := t.TempDir()
	path := writeFacts(t, dir, shopFacts)
	e := newEngine(t, Options{FactsPath: path})

	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	writeFacts(t, dir, `{"dependencies": [`)
	_, err = e.Rebuild(context.Background())
	require.Error(t, err)

	assert.Equal(t, uint64(1), e.Stats().Generation)
	assert.Equal(t, 4, e.Graph().NodeCount())
}

func TestRebuild_MergesStagedFacts(t *testing.T) {
	dir := t.TempDir()
	path := writeFacts(t, dir, shopFacts)
	dbPath := filepath.Join(dir, "facts.db")

	store, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	_, err = store.InsertFacts([]facts.Fact{
		{Source: "com.shop.OrderService", Relation: "CALLS", Target: "com.shop.Audit"},
		{Source: "com.shop.OrderService", Relation: "CALLS", Target: "com.shop.OrderRepository"},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	e := newEngine(t, Options{FactsPath: path, DBPath: dbPath})
	stats, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	// the repeated edge collapses
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, 4, stats.Edges)
	assert.ElementsMatch(t, []string{path, dbPath}, stats.Sources)
}

func TestRebuild_StagedRepoUsedWhenFileHasNone(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "facts.db")

	store, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	_, err = store.InsertFacts([]facts.Fact{{Source: "a.A", Relation: "CALLS", Target: "a.B"}})
	require.NoError(t, err)
	require.NoError(t, store.SetRepo("staged"))
	require.NoError(t, store.Close())

	e := newEngine(t, Options{DBPath: dbPath})
	stats, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "staged", stats.Repo)
	assert.Equal(t, 2, stats.Nodes)
}

func TestRebuild_Threshold(t *testing.T) {
	path := writeFacts(t, t.TempDir(), `[
		{"source": "X", "relation": "CALLS", "target": "Y"},
		{"source": "Z", "relation": "CALLS", "target": "Y"}
	]`)
	e := newEngine(t, Options{
		FactsPath:   path,
		Criticality: graph.CriticalityOptions{InDegreeThreshold: 2},
	})

	stats, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CriticalEdges)
}

func TestImpact_CachePerGeneration(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path, CacheSize: 8})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	q := impact.Query{Seeds: []string{"BillingService"}}
	first, err := e.Impact(context.Background(), q)
	require.NoError(t, err)
	second, err := e.Impact(context.Background(), q)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = e.Rebuild(context.Background())
	require.NoError(t, err)
	third, err := e.Impact(context.Background(), q)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Graphs, third.Graphs)
}

func TestImpact_PassesThroughBlocks(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path, CacheSize: 8})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	plain, err := e.Impact(context.Background(), impact.Query{Seeds: []string{"Order"}})
	require.NoError(t, err)
	assert.Nil(t, plain.Repo)

	repo := "other"
	withRepo, err := e.Impact(context.Background(), impact.Query{Seeds: []string{"Order"}, Repo: &repo})
	require.NoError(t, err)
	require.NotNil(t, withRepo.Repo)
	assert.Equal(t, "other", *withRepo.Repo.Repo)
}

func TestImpact_Errors(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	_, err = e.Impact(context.Background(), impact.Query{Seeds: []string{""}})
	assert.ErrorIs(t, err, impact.ErrValidation)
	_, err = e.Impact(context.Background(), impact.Query{Seeds: []string{"Nope"}})
	assert.ErrorIs(t, err, impact.ErrNotFound)
}

func TestAnalyze(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	report := e.Analyze("", graph.DefaultConfig())
	assert.Equal(t, 4, report.Topology.TotalNodes)
	assert.Equal(t, 1, report.Topology.NumComponents)

	scoped := e.Analyze("com", graph.DefaultConfig())
	assert.Equal(t, 3, scoped.Topology.TotalNodes)

	assert.Len(t, e.FindNodes("service"), 2)
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFacts(t, dir, `[{"source": "a.A", "relation": "CALLS", "target": "a.B"}]`)
	e := newEngine(t, Options{FactsPath: path})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, 20*time.Millisecond) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeFacts(t, dir, `[
		{"source": "a.A", "relation": "CALLS", "target": "a.B"},
		{"source": "a.B", "relation": "CALLS", "target": "a.C"}
	]`)

	require.Eventually(t, func() bool {
		return e.Graph().NodeCount() == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, e.Stats().Generation, uint64(2))
}

func TestWatch_NoSources(t *testing.T) {
	e := newEngine(t, Options{})
	assert.Error(t, e.Watch(context.Background(), 0))
}

func TestCacheKey_DistinguishesOptionalFields(t *testing.T) {
	empty := ""
	a := cacheKey(1, impact.Query{Seeds: []string{"x"}})
	b := cacheKey(1, impact.Query{Seeds: []string{"x"}, Repo: &empty})
	c := cacheKey(2, impact.Query{Seeds: []string{"x"}})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCacheKey_SeedBoundaries(t *testing.T) {
	split := cacheKey(1, impact.Query{Seeds: []string{"Order", "Billing"}})
	joined := cacheKey(1, impact.Query{Seeds: []string{"Order\x00Billing"}})
	assert.NotEqual(t, split, joined)

	plan := "x"
	seedOnly := cacheKey(1, impact.Query{Seeds: []string{"a", "x"}})
	withPlan := cacheKey(1, impact.Query{Seeds: []string{"a"}, TestPlan: &plan})
	assert.NotEqual(t, seedOnly, withPlan)
}

func TestImpact_CacheDoesNotConflateSeeds(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path, CacheSize: 16})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	resp, err := e.Impact(context.Background(), impact.Query{Seeds: []string{"OrderService", "BillingService"}})
	require.NoError(t, err)
	require.Len(t, resp.Graphs, 2)

	_, err = e.Impact(context.Background(), impact.Query{Seeds: []string{"OrderService\x00BillingService"}})
	assert.ErrorIs(t, err, impact.ErrNotFound)
}

func TestNew_ZeroThresholdKeepsCrossPackageSetting(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)

	off := newEngine(t, Options{FactsPath: path})
	stats, err := off.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CriticalEdges)

	on := newEngine(t, Options{FactsPath: path, Criticality: graph.CriticalityOptions{MarkCrossPackage: true}})
	stats, err = on.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CriticalEdges)
}

func TestWithDocumentRepo(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path})

	q := e.WithDocumentRepo(impact.Query{Seeds: []string{"x"}})
	assert.Nil(t, q.Repo, "no generation loaded yet")

	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	q = e.WithDocumentRepo(impact.Query{Seeds: []string{"x"}})
	require.NotNil(t, q.Repo)
	assert.Equal(t, "shop", *q.Repo)

	empty := ""
	q = e.WithDocumentRepo(impact.Query{Seeds: []string{"x"}, Repo: &empty})
	require.NotNil(t, q.Repo)
	assert.Equal(t, "", *q.Repo)
}

func TestImpact_ConcurrentWithRebuild(t *testing.T) {
	path := writeFacts(t, t.TempDir(), shopFacts)
	e := newEngine(t, Options{FactsPath: path, CacheSize: 4})
	_, err := e.Rebuild(context.Background())
	require.NoError(t, err)

	const readers = 8
	const rounds = 50

	var wg sync.WaitGroup
	errs := make(chan error, readers*rounds+rounds)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := e.Rebuild(context.Background()); err != nil {
				errs <- err
			}
		}
	}()

	seeds := [][]string{{"BillingService"}, {"OrderService"}, {"OrderRepository", "BillingService"}}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				resp, err := e.Impact(context.Background(), impact.Query{Seeds: seeds[(r+i)%len(seeds)]})
				if err != nil {
					errs <- err
					continue
				}
				for _, c := range resp.Graphs {
					if len(c.Nodes) == 0 || c.Links == nil {
						errs <- assert.AnError
					}
				}
			}
		}(r)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, uint64(rounds+1), e.Stats().Generation)

	resp, err := e.Impact(context.Background(), impact.Query{Seeds: []string{"BillingService"}})
	require.NoError(t, err)
	require.Len(t, resp.Graphs, 1)
	assert.Len(t, resp.Graphs[0].Nodes, 4)
	assert.Len(t, resp.Graphs[0].Links, 3)
}
