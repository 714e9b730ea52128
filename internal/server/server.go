// Package server is the llmgate web app: a chat UI in front of the any-llm
// gateway, per-user usage reporting and an admin API for the model list.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/catalog"
	"github.com/spetersoncode/llmgate/discovery"
	"github.com/spetersoncode/llmgate/gateway"
	"github.com/spetersoncode/llmgate/internal/config"
	"github.com/spetersoncode/llmgate/internal/ledger"
	"github.com/spetersoncode/llmgate/internal/observability"
)

//go:embed static
var staticFiles embed.FS

// UsageSource reports per-user usage. *gateway.Client implements it.
type UsageSource interface {
	UserUsage(ctx context.Context, userID string) ([]gateway.UsageRecord, error)
	ListUsers(ctx context.Context) ([]string, error)
	AggregateUsers(ctx context.Context, ids []string) (gateway.Aggregate, error)
}

// ModelDiscoverer lists the models a provider offers. *discovery.Service implements it.
type ModelDiscoverer interface {
	SupportedProviders() []string
	Discover(ctx context.Context, provider string) ([]discovery.ModelInfo, error)
}

// Deps are the collaborators the server delegates to.
type Deps struct {
	// Chat serves completions. In gateway mode it routes models through the gateway.
	Chat      ai.ChatProvider
	Usage     UsageSource
	Catalog   catalog.Store
	Discovery ModelDiscoverer
	// Ledger is optional. Without it completions are not recorded locally.
	Ledger *ledger.Ledger
	Logger *slog.Logger
}

// Server serves the web app.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the server and its routes.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		s.recovery(),
		requestID(),
		s.accessLog(),
		cors(),
		observability.Middleware(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/chat/stream", "/metrics"})),
	)

	static, _ := fs.Sub(staticFiles, "static")
	r.StaticFS("/static", http.FS(static))
	r.GET("/", s.page(static, "index.html"))
	r.GET("/admin", s.page(static, "admin.html"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/models", s.listModels)
	api.POST("/chat", s.chat)
	api.POST("/chat/stream", s.chatStream)
	api.GET("/usage", s.usage)
	api.GET("/usage/users", s.usageUsers)
	api.GET("/usage/local", s.usageLocal)

	admin := api.Group("/admin", adminAuth(s.cfg.Server.AdminKey))
	admin.GET("/models", s.adminListModels)
	admin.POST("/models", s.adminAddModel)
	admin.PUT("/models/:provider/*model", s.adminUpdateModel)
	admin.DELETE("/models/:provider/*model", s.adminDeleteModel)
	admin.GET("/providers", s.adminProviders)
	admin.GET("/discover/:provider", s.adminDiscover)
	admin.POST("/discover/:provider/import", s.adminImport)

	return r
}

func (s *Server) page(static fs.FS, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fs.ReadFile(static, name)
		if err != nil {
			detail(c, http.StatusNotFound, "page not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		// SSE responses stay open for the whole completion.
		WriteTimeout: 0,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr, "chat_backend", s.cfg.Server.ChatBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// detail writes an error body in the {"detail": ...} shape the UI expects.
func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// requireMasterKey fails the request when gateway mode has no master key.
func (s *Server) requireMasterKey(c *gin.Context) bool {
	if s.cfg.Gateway.MasterKey == "" {
		detail(c, http.StatusInternalServerError, "GATEWAY_MASTER_KEY not configured")
		return false
	}
	return true
}
