package db

// FactRow represents a row in the dependencies table
type FactRow struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Relation  string `json:"relation"` // as emitted by the extractor, e.g. "CALLS"
	Target    string `json:"target"`
	CreatedAt int64  `json:"created_at"` // Unix millis
}

// RelationCount is the number of staged facts of one relation type
type RelationCount struct {
	Relation string `json:"relation"`
	Count    int    `json:"count"`
}

const metaRepoKey = "repo"
