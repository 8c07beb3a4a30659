package server

import (
	"time"

	"impactanalyzer/core/internal/impact"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeRebuildFailed  = "REBUILD_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ImpactRequest is the body of POST /v1/impact
type ImpactRequest struct {
	Seeds    []string `json:"seeds"`
	TestPlan *string  `json:"testPlan"`
	Repo     *string  `json:"repo"`
}

func (r ImpactRequest) query() impact.Query {
	return impact.Query{Seeds: r.Seeds, TestPlan: r.TestPlan, Repo: r.Repo}
}

// NodeMatch is one entry of GET /v1/nodes
type NodeMatch struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Dependencies int    `json:"dependencies"`
}

// NodesResponse is the body of GET /v1/nodes
type NodesResponse struct {
	Query string      `json:"query"`
	Nodes []NodeMatch `json:"nodes"`
}

// HealthResponse is the body of GET /v1/health
type HealthResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Generation uint64    `json:"generation"`
	Repo       string    `json:"repo,omitempty"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
	BuiltAt    time.Time `json:"built_at"`
}
