// Package server exposes stored datasets over HTTP for dashboards and
// notebooks. Responses use the headers/data shape most table widgets accept
// directly.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/querysql"
	"github.com/robert-koetsier/tidyseq/internal/stats"
	"github.com/robert-koetsier/tidyseq/internal/store"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// maxLimit caps rows returned by a single request.
const maxLimit = 10000

// Server wraps a dataset store behind a gin router.
type Server struct {
	st     *store.Store
	logger *slog.Logger
	router *gin.Engine
}

// New builds a Server around an open store. The logger may be nil.
func New(st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{st: st, logger: logger, router: gin.New()}
	s.router.Use(gin.Recovery(), corsMiddleware())

	s.router.GET("/healthcheck", s.healthCheck)
	s.router.GET("/datasets", s.listDatasets)
	s.router.GET("/datasets/:name", s.getDataset)
	s.router.GET("/datasets/:name/describe", s.describeDataset)
	s.router.GET("/runs", s.listRuns)
	s.router.POST("/query", s.query)

	return s
}

// Handler returns the underlying HTTP handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("serving datasets", "addr", addr)
	return s.router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) listDatasets(c *gin.Context) {
	infos, err := s.st.ListDatasets(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(infos))
	for _, info := range infos {
		out = append(out, gin.H{
			"name":        info.Name,
			"rows":        info.Rows,
			"columns":     info.Header,
			"kinds":       info.Kinds,
			"fingerprint": info.Fingerprint,
			"ingested_at": info.IngestedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"datasets": out})
}

// getDataset returns rows of one dataset. Supports ?limit=, ?offset=,
// ?cols=a&cols=b and repeated ?where=column op value clauses.
func (s *Server) getDataset(c *gin.Context) {
	name := c.Param("name")

	limit := 1000
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 || l > maxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 10000"})
			return
		}
		limit = l
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		o, err := strconv.Atoi(raw)
		if err != nil || o < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be non-negative"})
			return
		}
		offset = o
	}

	pred, err := wherePredicate(c.QueryArray("where"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := querysql.Query{
		Dataset: name,
		Cols:    c.QueryArray("cols"),
		Pred:    pred,
		Limit:   limit,
		Offset:  offset,
	}
	t, err := s.st.QueryDataset(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDataset) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, tablePayload(t))
}

func (s *Server) describeDataset(c *gin.Context) {
	name := c.Param("name")
	t, err := s.st.ReadDataset(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDataset) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, err)
		return
	}

	summaries := make([]gin.H, 0)
	for i, col := range t.Header() {
		switch t.Kinds()[i] {
		case table.KindInt, table.KindFloat:
		default:
			continue
		}
		sum, err := stats.Describe(t, col)
		if err != nil {
			s.internalError(c, err)
			return
		}
		summaries = append(summaries, gin.H{
			"column": sum.Column,
			"n":      sum.N,
			"na":     sum.NA,
			"mean":   sum.Mean,
			"sd":     jsonFloat(sum.SD),
			"min":    sum.Min,
			"q1":     sum.Q1,
			"median": sum.Median,
			"q3":     sum.Q3,
			"max":    sum.Max,
		})
	}
	c.JSON(http.StatusOK, gin.H{"dataset": name, "summaries": summaries})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.st.ListRuns(c.Request.Context(), c.Query("analysis"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{
			"id":          r.ID,
			"analysis":    r.Analysis,
			"spec_hash":   r.SpecHash,
			"dataset":     r.Dataset,
			"fingerprint": r.Fingerprint,
			"started_at":  r.StartedAt,
			"finished_at": r.FinishedAt,
			"status":      r.Status,
			"message":     r.Message,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// queryRequest is the POST /query body.
type queryRequest struct {
	Dataset string        `json:"dataset" binding:"required"`
	Cols    []string      `json:"cols"`
	Where   []whereClause `json:"where"`
	Limit   int           `json:"limit"`
}

type whereClause struct {
	Col   string `json:"col" binding:"required"`
	Op    string `json:"op" binding:"required"`
	Value any    `json:"value"`
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 0 and 10000"})
		return
	}
	if req.Limit == 0 {
		req.Limit = 1000
	}

	var preds []pipeline.Predicate
	for _, w := range req.Where {
		p, err := clausePredicate(w)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		preds = append(preds, p)
	}
	var pred pipeline.Predicate
	switch len(preds) {
	case 0:
	case 1:
		pred = preds[0]
	default:
		pred = pipeline.And{Preds: preds}
	}

	q := querysql.Query{
		Dataset: req.Dataset,
		Cols:    req.Cols,
		Pred:    pred,
		Limit:   req.Limit,
	}
	t, err := s.st.QueryDataset(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDataset) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.logger.Warn("query failed", "dataset", req.Dataset, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tablePayload(t))
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// tablePayload converts a table to the headers/data JSON shape.
func tablePayload(t *table.Table) gin.H {
	data := make([][]any, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		row := make([]any, t.NumCols())
		for j := 0; j < t.NumCols(); j++ {
			row[j] = cellJSON(t.Value(i, j))
		}
		data = append(data, row)
	}
	return gin.H{
		"headers": t.Header(),
		"kinds":   t.KindStrings(),
		"data":    data,
	}
}

func cellJSON(v ir.Value) any {
	switch x := v.(type) {
	case ir.Null:
		return nil
	case ir.String:
		return string(x)
	case ir.Int:
		return int64(x)
	case ir.Float:
		return float64(x)
	case ir.Bool:
		return bool(x)
	default:
		return nil
	}
}

// jsonFloat maps NaN to nil; encoding/json rejects NaN.
func jsonFloat(f float64) any {
	if f != f {
		return nil
	}
	return f
}
