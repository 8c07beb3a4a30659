package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"impactanalyzer/core/internal/engine"
	"impactanalyzer/core/internal/graph"
	"impactanalyzer/core/internal/impact"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

const maxNodeMatches = 200

// Handlers serves the impact API from an Engine
type Handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandlers creates handlers backed by eng.
func NewHandlers(eng *engine.Engine, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{engine: eng, logger: logger}
}

// RegisterRoutes mounts every handler on rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/health", h.HandleHealth)
	rg.POST("/impact", h.HandleImpact)
	rg.GET("/impact", h.HandleImpactByNode)
	rg.GET("/nodes", h.HandleNodes)
	rg.GET("/graph/stats", h.HandleGraphStats)
	rg.POST("/graph/rebuild", h.HandleRebuild)
}

// HandleImpact handles POST /v1/impact.
func (h *Handlers) HandleImpact(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImpact")

	var req ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  CodeInvalidRequest,
		})
		return
	}

	h.respondImpact(c, logger, req.query())
}

// HandleImpactByNode handles GET /v1/impact?node=a&node=b. Each node
// parameter is one seed; testPlan and repo may be given as parameters too.
func (h *Handlers) HandleImpactByNode(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImpactByNode")

	q := impact.Query{Seeds: c.QueryArray("node")}
	if v, ok := c.GetQuery("testPlan"); ok {
		q.TestPlan = &v
	}
	if v, ok := c.GetQuery("repo"); ok {
		q.Repo = &v
	}
	h.respondImpact(c, logger, q)
}

func (h *Handlers) respondImpact(c *gin.Context, logger *slog.Logger, q impact.Query) {
	q = h.engine.WithDocumentRepo(q)
	resp, err := h.engine.Impact(c.Request.Context(), q)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			logger.Error("Impact query failed", "seeds", q.Seeds, "error", err)
		} else {
			logger.Info("Impact query rejected", "seeds", q.Seeds, "code", code)
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	impactClustersReturned.Observe(float64(len(resp.Graphs)))
	logger.Info("Impact query answered", "seeds", len(q.Seeds), "clusters", len(resp.Graphs), "nodes", resp.NodeCount())
	c.JSON(http.StatusOK, resp)
}

// HandleNodes handles GET /v1/nodes?q=partial.
func (h *Handlers) HandleNodes(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "q query parameter is required",
			Code:  CodeValidation,
		})
		return
	}

	limit := maxNodeMatches
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  CodeValidation,
			})
			return
		}
		limit = min(n, maxNodeMatches)
	}

	g := h.engine.Graph()
	found := g.FindNodes(query)
	if len(found) > limit {
		found = found[:limit]
	}

	resp := NodesResponse{Query: query, Nodes: make([]NodeMatch, 0, len(found))}
	for _, n := range found {
		resp.Nodes = append(resp.Nodes, NodeMatch{
			ID:           n.Name,
			Label:        graph.ShortName(n.Name),
			Dependencies: len(g.Dependencies(n.Name)),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGraphStats handles GET /v1/graph/stats. Optional parameters:
// namespace restricts the analysis, hub_threshold and top_n tune it.
func (h *Handlers) HandleGraphStats(c *gin.Context) {
	cfg := graph.DefaultConfig()
	for param, dst := range map[string]*int{"hub_threshold": &cfg.HubThreshold, "top_n": &cfg.TopN} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: param + " must be a non-negative integer",
				Code:  CodeValidation,
			})
			return
		}
		*dst = n
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":    h.engine.Stats(),
		"analysis": h.engine.Analyze(c.Query("namespace"), cfg),
	})
}

// HandleRebuild handles POST /v1/graph/rebuild.
func (h *Handlers) HandleRebuild(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRebuild")

	stats, err := h.engine.Rebuild(c.Request.Context())
	if err != nil {
		logger.Error("Rebuild failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  CodeRebuildFailed,
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	stats := h.engine.Stats()
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Version:    Version,
		Generation: stats.Generation,
		Repo:       stats.Repo,
		Nodes:      stats.Nodes,
		Edges:      stats.Edges,
		BuiltAt:    stats.BuiltAt,
	})
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// classify maps query errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, impact.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, impact.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	c.Set(requestIDKey, requestID)
	return requestID
}

const requestIDKey = "request_id"

// requestMiddleware assigns request IDs and records per-route metrics.
func requestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// corsMiddleware allows a single browser origin, typically the graph UI.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ObserveGraph publishes generation stats as gauges. Wire it to
// engine.Options.OnRebuild.
func ObserveGraph(stats engine.Stats) {
	graphNodes.Set(float64(stats.Nodes))
	graphEdges.Set(float64(stats.Edges))
	graphCriticalEdges.Set(float64(stats.CriticalEdges))
}
