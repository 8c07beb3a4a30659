package impact

import "impactanalyzer/core/internal/graph"

const (
	testPlanTitle = "Test Plan"
	repoTitle     = "Repo"
)

// Assemble validates q, runs the traversal and wraps the clusters in the
// external response shape.
func Assemble(g *graph.Graph, q Query) (*MultiResponse, error) {
	if len(NonBlankSeeds(q.Seeds)) == 0 {
		return nil, ErrValidation
	}
	clusters, err := Traverse(g, q.Seeds)
	if err != nil {
		return nil, err
	}
	return NewMultiResponse(clusters, q.TestPlan, q.Repo), nil
}

// NewMultiResponse builds the response envelope around clusters.
func NewMultiResponse(clusters []Cluster, testPlan, repo *string) *MultiResponse {
	resp := &MultiResponse{Graphs: clusters}
	if testPlan != nil {
		resp.TestPlan = &TestPlan{Title: testPlanTitle, TestPlan: nullIfEmpty(*testPlan)}
	}
	if repo != nil {
		resp.Repo = &Repo{Title: repoTitle, Repo: nullIfEmpty(*repo)}
	}
	return resp
}

// NodeCount returns the number of nodes across all clusters
func (r *MultiResponse) NodeCount() int {
	total := 0
	for _, c := range r.Graphs {
		total += len(c.Nodes)
	}
	return total
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
