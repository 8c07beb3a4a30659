package impact

// DependsLabel is the label carried by every emitted link
const DependsLabel = "depends"

// Node is one module in a cluster, ready for graph visualization
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Critical bool   `json:"critical"`
}

// Link is a directed dependency discovered during traversal
type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label"`
	Critical bool   `json:"critical"`
}

// Cluster is the subgraph contributed by one seed after cross-seed dedup
type Cluster struct {
	Seed  string `json:"-"`
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// TestPlan wraps an opaque, caller-supplied test plan
type TestPlan struct {
	Title    string  `json:"title"`
	TestPlan *string `json:"testPlan"`
}

// Repo wraps the repository label
type Repo struct {
	Title string  `json:"title"`
	Repo  *string `json:"repo"`
}

// MultiResponse is the external multi-cluster response shape
type MultiResponse struct {
	Graphs   []Cluster `json:"graphs"`
	TestPlan *TestPlan `json:"testPlan,omitempty"`
	Repo     *Repo     `json:"repo,omitempty"`
}

// Query is a multi-seed impact request. TestPlan and Repo are passed
// through untouched; nil omits the block, an empty string renders null.
type Query struct {
	Seeds    []string `json:"seeds"`
	TestPlan *string  `json:"testPlan,omitempty"`
	Repo     *string  `json:"repo,omitempty"`
}
