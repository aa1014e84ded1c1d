// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereceipt/label-designer/internal/config"
	"github.com/thereceipt/label-designer/internal/designer"
	"github.com/thereceipt/label-designer/internal/fonts"
	"github.com/thereceipt/label-designer/internal/logger"
	"github.com/thereceipt/label-designer/internal/metrics"
	"github.com/thereceipt/label-designer/internal/power"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/repository"
	"go.uber.org/zap"
)

// Prefix is where the label designer API is mounted
const Prefix = "/labeldesigner"

// Deps are the collaborators the server needs; Metrics and Power may be nil
type Deps struct {
	Config     *config.Config
	Factory    *designer.Factory
	Fonts      *fonts.Resolver
	Printer    designer.PrinterSettings
	Scanner    *printer.Scanner
	Repository *repository.Store
	Power      *power.Client
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// Server is the API server
type Server struct {
	router   *gin.Engine
	deps     Deps
	hub      *Hub
	limiter  *clientLimiter
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewServer creates a new API server
func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	log := d.Log.Named("api")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    d.Log,
		SkipPaths: []string{"/health", "/metrics"},
	}))
	if d.Metrics != nil {
		router.Use(d.Metrics.GinMiddleware())
	}
	router.Use(corsMiddleware())

	s := &Server{
		router:  router,
		deps:    d,
		hub:     newHub(log),
		limiter: newClientLimiter(d.Config.PrintRateLimit, d.Config.PrintRateBurst),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
	if d.Printer.Journal != nil {
		d.Printer.Journal.OnFinished(s.hub.BroadcastJob)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	ld := s.router.Group(Prefix)
	ld.GET("/api/config", s.handleConfig)
	ld.POST("/api/preview", s.handlePreview)
	ld.POST("/api/print", s.rateLimit(), s.handlePrint)
	ld.GET("/api/print", s.rateLimit(), s.handlePrint)
	ld.GET("/api/barcodes", s.handleBarcodes)
	ld.GET("/api/printer_status", s.handlePrinterStatus)
	ld.POST("/api/printer_rescan", s.handlePrinterRescan)

	repo := ld.Group("/api/repository")
	repo.GET("/list", s.handleRepoList)
	repo.POST("/save", s.handleRepoSave)
	repo.GET("/load", s.handleRepoLoad)
	repo.POST("/delete", s.handleRepoDelete)
	repo.GET("/preview", s.handleRepoPreview)
	repo.POST("/preview", s.handleRepoPreview)
	repo.POST("/print", s.rateLimit(), s.handleRepoPrint)

	s.router.GET("/api/printer_power/status", s.handlePowerStatus)
	s.router.POST("/api/printer_power/toggle", s.handlePowerToggle)
	s.router.GET("/api/jobs", s.handleGetJobs)
	s.router.GET("/api/job/:id", s.handleGetJob)

	s.router.GET("/ws", s.handleWebSocket)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub for event wiring
func (s *Server) Hub() *Hub { return s.hub }

// Run serves addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
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

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleGetJobs(c *gin.Context) {
	jobs := []printer.Job{}
	if s.deps.Printer.Journal != nil {
		jobs = s.deps.Printer.Journal.All()
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetJob(c *gin.Context) {
	if s.deps.Printer.Journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	job, ok := s.deps.Printer.Journal.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
