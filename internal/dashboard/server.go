// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dashboard serves the analytics views over HTTP for a dashboard
// front end: JSON endpoints for every view and a server-sent event stream
// of change notifications.
package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/analytics"
	"github.com/pdiddy/paper-search/pkg/types"
)

// HistoryPageLimit caps the records returned by the history endpoint.
const HistoryPageLimit = 50

// Version is reported by the health endpoint.
var Version = "dev"

// Analytics is the read side of the analytics recorder.
// *analytics.Recorder implements it.
type Analytics interface {
	Summary(ctx context.Context) (types.AnalyticsSummary, error)
	History(ctx context.Context) ([]types.SearchAnalyticsRecord, error)
	Hourly(ctx context.Context) ([]types.HourlyBucket, error)
	Trending(ctx context.Context, limit int) ([]types.TrendingTerm, error)
	Performance(ctx context.Context) (types.PerformanceMetrics, error)
	Export(ctx context.Context) (types.AnalyticsSnapshot, error)
}

// response is the envelope every JSON endpoint answers with.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server exposes one recorder over HTTP.
type Server struct {
	analytics Analytics
	broker    *analytics.Broker
	log       *zap.Logger
	engine    *gin.Engine
	now       func() time.Time
}

// New builds the gin engine. broker may be nil, in which case the event
// stream answers 503.
func New(a Analytics, broker *analytics.Broker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{analytics: a, broker: broker, log: log, now: time.Now}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())
	r.GET("/health", s.health)

	api := r.Group("/api/analytics")
	{
		api.GET("/summary", s.summary)
		api.GET("/history", s.history)
		api.GET("/hourly", s.hourly)
		api.GET("/trending", s.trending)
		api.GET("/performance", s.performance)
		api.GET("/export", s.export)
		api.GET("/events", s.events)
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("dashboard request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"service":             "paper-search analytics",
		"version":             Version,
		"timestamp":           s.now().Format(time.RFC3339),
		"analytics_available": s.analytics != nil,
	})
}

// reply writes data, or a 500 with the error when err is set.
func (s *Server) reply(c *gin.Context, view string, data any, err error) {
	if err != nil {
		s.log.Warn("analytics view failed", zap.String("view", view), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Data: data})
}

func (s *Server) summary(c *gin.Context) {
	v, err := s.analytics.Summary(c.Request.Context())
	s.reply(c, "summary", v, err)
}

func (s *Server) history(c *gin.Context) {
	v, err := s.analytics.History(c.Request.Context())
	if len(v) > HistoryPageLimit {
		v = v[:HistoryPageLimit]
	}
	if v == nil {
		v = []types.SearchAnalyticsRecord{}
	}
	s.reply(c, "history", v, err)
}

func (s *Server) hourly(c *gin.Context) {
	v, err := s.analytics.Hourly(c.Request.Context())
	s.reply(c, "hourly", v, err)
}

func (s *Server) trending(c *gin.Context) {
	limit := analytics.DefaultTrendingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, response{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	v, err := s.analytics.Trending(c.Request.Context(), limit)
	s.reply(c, "trending", v, err)
}

func (s *Server) performance(c *gin.Context) {
	v, err := s.analytics.Performance(c.Request.Context())
	s.reply(c, "performance", v, err)
}

func (s *Server) export(c *gin.Context) {
	v, err := s.analytics.Export(c.Request.Context())
	if err == nil && c.Query("download") != "" {
		name := "paper-search-analytics-" + v.Metadata.ExportedAt.Format("2006-01-02") + ".json"
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	s.reply(c, "export", v, err)
}

// events streams analytics changes as server-sent events until the client
// disconnects.
func (s *Server) events(c *gin.Context) {
	if s.broker == nil {
		c.JSON(http.StatusServiceUnavailable, response{Error: "change notifications are not enabled"})
		return
	}
	ch := s.broker.Subscribe(c.Request.Context())

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"timestamp": s.now().Format(time.RFC3339)})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		change, ok := <-ch
		if !ok {
			return false
		}
		c.SSEvent(string(change.Kind), change)
		return true
	})
}
