// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the synchronous search and the asynchronous task
// API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/internal/task"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Handler serves the search and task routes.
type Handler struct {
	Aggregator   *aggregate.Aggregator
	Orchestrator *task.Orchestrator
	Parser       intent.Parser
	Options      intent.Options
	Logger       *slog.Logger
}

// HandlerFunc returns a status, a JSON body and an error. A non-nil error
// is rendered as an ErrorResponse.
type HandlerFunc func(*gin.Context) (int, any, error)

// SearchResponse is the body of a synchronous search.
type SearchResponse struct {
	Query        types.StructuredQuery   `json:"normalized_intent"`
	Results      []types.CanonicalRecord `json:"results"`
	Counts       types.Counts            `json:"counts"`
	SourceErrors map[string]string       `json:"source_errors,omitempty"`
}

// SubmitRequest is the body of POST /tasks.
type SubmitRequest struct {
	Query string `json:"query"`
}

// SubmitResponse is returned with 202 Accepted.
type SubmitResponse struct {
	TaskID string           `json:"task_id"`
	Status types.TaskStatus `json:"status"`
}

// New returns the router with every route registered.
func New(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "page not found"})
	})

	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes adds the handler's routes to router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.JSON(h.Health))
	router.POST("/search", h.JSON(h.SearchStructured))
	router.GET("/search", h.JSON(h.SearchText))
	router.POST("/tasks", h.JSON(h.Submit))
	router.GET("/tasks/:id", h.JSON(h.Poll))
}

// JSON renders fn's result, mapping errors to coded responses.
func (h *Handler) JSON(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, body, err := fn(c)
		if err != nil {
			status, errCode := errorStatus(err)
			if status >= http.StatusInternalServerError {
				h.logger().Error("request failed", "path", c.FullPath(), "error", err)
			}
			c.JSON(status, ErrorResponse{Code: errCode, Message: err.Error()})
			return
		}
		c.JSON(code, body)
	}
}

// Health reports liveness and the number of stored tasks.
func (h *Handler) Health(*gin.Context) (int, any, error) {
	body := gin.H{"status": "ok"}
	if h.Orchestrator != nil {
		body["tasks"] = h.Orchestrator.Store.Len()
	}
	return http.StatusOK, body, nil
}

// SearchStructured runs a StructuredQuery from the request body.
func (h *Handler) SearchStructured(c *gin.Context) (int, any, error) {
	var q types.StructuredQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		return 0, nil, requestError{msg: fmt.Sprintf("decoding query: %v", err)}
	}
	return h.search(c.Request.Context(), h.Options.Finish(q))
}

// SearchText parses the q parameter and runs the query.
func (h *Handler) SearchText(c *gin.Context) (int, any, error) {
	text := c.Query("q")
	if text == "" {
		return 0, nil, requestError{msg: "missing q parameter"}
	}
	q, err := h.Parser.Parse(c.Request.Context(), text)
	if err != nil {
		return 0, nil, err
	}
	return h.search(c.Request.Context(), q)
}

func (h *Handler) search(ctx context.Context, q types.StructuredQuery) (int, any, error) {
	res, err := h.Aggregator.Aggregate(ctx, q)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, SearchResponse{
		Query:        res.Query,
		Results:      res.Records,
		Counts:       res.Counts,
		SourceErrors: res.SourceErrors,
	}, nil
}

// Submit starts an asynchronous search task.
func (h *Handler) Submit(c *gin.Context) (int, any, error) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, requestError{msg: fmt.Sprintf("decoding request: %v", err)}
	}
	if req.Query == "" {
		return 0, nil, requestError{msg: "query is required"}
	}
	id, err := h.Orchestrator.Submit(c.Request.Context(), req.Query)
	if err != nil {
		return 0, nil, err
	}
	c.Header("Location", "/tasks/"+id)
	return http.StatusAccepted, SubmitResponse{TaskID: id, Status: types.TaskCreated}, nil
}

// Poll returns the current snapshot of a task.
func (h *Handler) Poll(c *gin.Context) (int, any, error) {
	t, err := h.Orchestrator.Store.Get(c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, t, nil
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
