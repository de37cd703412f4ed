// Package http exposes the ticket, definition and record services over a gin router.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aflo-dev/aflo/internal/application/service"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/export"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsRecorder observes served requests and exposes the registry
type MetricsRecorder interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// HealthFunc reports overall health plus the status of each component
type HealthFunc func(ctx context.Context) (bool, map[string]string)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services are the application services the router dispatches to
type Services struct {
	Tickets         service.TicketService
	Definitions     service.DefinitionService
	Catalogs        service.ResourceService[entity.Catalog]
	Goods           service.ResourceService[entity.Goods]
	CatalogContents service.ResourceService[entity.CatalogContents]
	CatalogScopes   service.ResourceService[entity.CatalogScope]
	Prices          service.ResourceService[entity.Price]
	Contracts       service.ResourceService[entity.Contract]
	Exporter        *export.TicketExporter
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       AuthConfig
	metrics    MetricsRecorder
	health     HealthFunc
	logger     Logger
}

// NewServer creates a new HTTP server with the given services. metrics and
// health may be nil.
func NewServer(
	config ServerConfig,
	services Services,
	auth AuthConfig,
	metrics MetricsRecorder,
	health HealthFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		auth:     auth,
		metrics:  metrics,
		health:   health,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// loggingMiddleware writes one access log entry per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// metricsMiddleware labels requests by route template so ids do not explode cardinality
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.health, s.logger)

	s.router.GET("/health", handlers.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api/v1", Authenticate(s.auth, s.logger))
	{
		tickets := api.Group("/tickets")
		tickets.GET("", handlers.ListTickets)
		tickets.GET("/:id", handlers.GetTicket)
		tickets.POST("", handlers.CreateTicket)
		tickets.PUT("/:id", handlers.TransitionTicket)
		tickets.DELETE("/:id", handlers.DeleteTicket)

		patterns := api.Group("/workflowpatterns")
		patterns.GET("", handlers.ListPatterns)
		patterns.GET("/:id", handlers.GetPattern)
		patterns.POST("", handlers.CreatePattern)
		patterns.DELETE("/:id", handlers.DeletePattern)

		templates := api.Group("/tickettemplates")
		templates.GET("", handlers.ListTemplates)
		templates.GET("/:id", handlers.GetTemplate)
		templates.POST("", handlers.CreateTemplate)
		templates.DELETE("/:id", handlers.DeleteTemplate)

		registerResource(api, "/catalogs", "catalog", "catalogs", s.services.Catalogs, s.logger)
		registerResource(api, "/goods", "goods", "goods", s.services.Goods, s.logger)
		registerResource(api, "/catalog-contents", "catalog_contents", "catalog_contents", s.services.CatalogContents, s.logger)
		registerResource(api, "/catalog-scopes", "catalog_scope", "catalog_scopes", s.services.CatalogScopes, s.logger)
		registerResource(api, "/prices", "price", "prices", s.services.Prices, s.logger)
		registerResource(api, "/contracts", "contract", "contracts", s.services.Contracts, s.logger)

		api.GET("/exports/tickets", handlers.ExportTickets)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
