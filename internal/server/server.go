package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/aiinpocket/n3n/editor/internal/client"
	"github.com/aiinpocket/n3n/editor/internal/editor"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/internal/registry"
	"github.com/aiinpocket/n3n/editor/internal/util"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// Server implements the HTTP API server for the flow editor. It hosts one
// editor session per open flow and relays execution events from those
// sessions to WebSocket clients through the event hub
type Server struct {
	store      persist.VersionStore
	registry   *registry.Registry
	services   *registry.ServiceCatalog
	exec       client.ExecutionClient
	hub        *Hub
	sessions   map[api.FlowID]*editor.Session
	executions map[api.ExecutionID]api.FlowID
	sockets    util.Set[*Client]
	opts       []persist.Option
	mu         sync.Mutex
}

var (
	ErrInvalidJSON     = errors.New("invalid JSON payload")
	ErrOpenSession     = errors.New("failed to open editor session")
	ErrExecutionOwner  = errors.New("execution not started by this editor")
	ErrInvalidFlowID   = errors.New("valid flow ID is required")
	ErrDefinitionEmpty = errors.New("flow definition is required")
)

// NewServer creates a new HTTP API server
func NewServer(
	store persist.VersionStore, reg *registry.Registry,
	services *registry.ServiceCatalog, exec client.ExecutionClient,
	opts ...persist.Option,
) *Server {
	return &Server{
		store:      store,
		registry:   reg,
		services:   services,
		exec:       exec,
		hub:        NewHub(),
		sessions:   map[api.FlowID]*editor.Session{},
		executions: map[api.ExecutionID]api.FlowID{},
		sockets:    util.Set[*Client]{},
		opts:       opts,
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Catalog endpoints
	router.GET("/catalog/nodes", s.listNodeTypes)
	router.GET("/catalog/services", s.listServices)
	router.GET("/catalog/services/:name", s.getService)

	// Flow endpoints
	flows := router.Group("/flows")
	{
		flows.GET("/:flowID", s.getFlow)
		flows.POST("/:flowID/validate", s.validateFlow)

		flows.GET("/:flowID/versions", s.listVersions)
		flows.POST("/:flowID/versions", s.saveVersion)
		flows.POST("/:flowID/versions/:version/publish", s.publishVersion)

		flows.POST("/:flowID/executions", s.startExecution)
	}

	// Execution endpoints
	router.DELETE("/executions/:executionID", s.stopExecution)
	router.POST("/executions/:executionID/exit", s.exitExecution)
	router.GET("/executions/:executionID/ws", s.handleWebSocket)

	return router
}

// Session returns the editor session for a flow, loading the flow's
// latest draft from the store when no session is open yet
func (s *Server) Session(
	ctx context.Context, flowID api.FlowID,
) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[flowID]; ok {
		return sess, nil
	}

	def, draft, err := s.loadLatest(ctx, flowID)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	if draft != "" {
		opts = append(opts[:len(opts):len(opts)],
			persist.WithDraftVersion(draft))
	}
	sess := editor.NewSession(
		flowID, def, s.store, s.registry, s.exec, opts...,
	)
	sess.SetEventSink(s.hub.Publish)
	s.sessions[flowID] = sess
	return sess, nil
}

// Close shuts down all open sessions and WebSocket connections
func (s *Server) Close() {
	s.mu.Lock()
	sessions := make([]*editor.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = map[api.FlowID]*editor.Session{}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.CloseWebSockets()
	s.hub.Close()
}

// loadLatest resolves the definition a new session starts from and the
// draft slot its autosave should target: the most recent draft when one
// exists, otherwise the most recent version with no draft slot override
func (s *Server) loadLatest(
	ctx context.Context, flowID api.FlowID,
) (*api.FlowDefinition, string, error) {
	versions, err := s.store.List(ctx, flowID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrOpenSession, err)
	}
	for _, v := range versions {
		if v.IsDraft() {
			return v.Definition, v.Version, nil
		}
	}
	if len(versions) == 0 {
		return nil, "", nil
	}
	return versions[0].Definition, "", nil
}

func (s *Server) flowParam(c *gin.Context) (api.FlowID, bool) {
	flowID := api.SanitizeID(api.FlowID(c.Param("flowID")))
	if flowID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrInvalidFlowID.Error(),
			Status: http.StatusBadRequest,
		})
		return "", false
	}
	return flowID, true
}

func (s *Server) trackExecution(id api.ExecutionID, flowID api.FlowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[id] = flowID
}

func (s *Server) untrackExecution(id api.ExecutionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executions, id)
}

func (s *Server) executionFlow(id api.ExecutionID) (api.FlowID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flowID, ok := s.executions[id]
	return flowID, ok
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: "n3n-editor",
		Version: "1.0.0",
		Status:  "healthy",
	})
}

func internalError(c *gin.Context, sentinel, err error) {
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", sentinel, err),
		Status: http.StatusInternalServerError,
	})
}
