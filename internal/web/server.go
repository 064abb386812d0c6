// Package web is the HTTP surface: the webhook ingest endpoint, the
// transaction read endpoint, and the health check.
package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/ingest"
)

// Server routes HTTP requests to the ingest coordinator.
type Server struct {
	coordinator *ingest.Coordinator
	logger      *slog.Logger
	router      *gin.Engine
}

// NewServer creates the server and registers all routes.
func NewServer(coordinator *ingest.Coordinator, logger *slog.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		coordinator: coordinator,
		logger:      logger,
		router:      router,
	}

	router.GET("/", s.handleHealth)
	v1 := router.Group("/v1")
	{
		v1.POST("/webhooks/transactions", s.handleWebhook)
		v1.GET("/transactions/:transaction_id", s.handleGetTransaction)
	}

	return s
}

// Run starts the HTTP listener.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
