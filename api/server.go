package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fadbs/anidb-cache/api/types"
	"github.com/fadbs/anidb-cache/internal/database"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, readTimeout, writeTimeout time.Duration) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         address,
			Handler:      engine,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *database.DB) {
	if s.dependencies == nil {
		s.dependencies = &types.Dependencies{}
	}
	s.dependencies.DB = db
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.engine.Use(gin.Logger())
	RegisterRoutes(s.engine, s.dependencies)
	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
