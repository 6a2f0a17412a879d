package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/storeclerk/internal/audit"
	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/internal/queue"
	"github.com/storeclerk/internal/workflow"
)

// Server represents the API server
type Server struct {
	echo      *echo.Echo
	port      int
	jwtSecret string

	queueSvc   *queue.Service
	wfSvc      *workflow.Service
	auditStore audit.Store
}

// ErrorResponse is the body returned for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new API server
func NewServer(port int, jwtSecret string, queueSvc *queue.Service, wfSvc *workflow.Service, auditStore audit.Store) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:       e,
		port:       port,
		jwtSecret:  jwtSecret,
		queueSvc:   queueSvc,
		wfSvc:      wfSvc,
		auditStore: auditStore,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1", s.requireAuth())

	// Approval queue
	v1.GET("/queue", s.listQueue)
	v1.POST("/queue", s.enqueue)
	v1.GET("/queue/:id", s.getQueueItem)
	v1.POST("/queue/:id/approve", s.approveItem)
	v1.POST("/queue/:id/reject", s.rejectItem)
	v1.POST("/queue/:id/edit", s.editItem)
	v1.POST("/queue/:id/retry", s.retryItem)

	// Activity log
	v1.GET("/activity", s.listActivity)

	// Warehouse workflows
	v1.GET("/workflows", s.listWorkflows)
	v1.GET("/workflows/:id", s.getWorkflow)
	v1.GET("/workflows/:id/events", s.listWorkflowEvents)
	v1.POST("/workflows/:id/reply", s.workflowReply)
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying echo handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// jsonError maps service errors onto HTTP status codes.
func jsonError(c echo.Context, err error) error {
	switch {
	case engine.IsValidation(err):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case engine.IsNotFound(err):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case engine.IsInvalidState(err):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case engine.IsExternal(err):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
