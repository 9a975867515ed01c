package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
	"github.com/Skufu/diagnosis-dispatcher/internal/history"
)

// Options configures the router.
type Options struct {
	StaticRoot   string
	MaxBodyBytes int64
	// History is nil when prediction history is disabled.
	History history.Store
	Now     func() time.Time
}

// Server wires the dispatcher to HTTP.
type Server struct {
	dispatcher *diagnosis.Dispatcher
	history    history.Store
	logger     *zap.Logger
	now        func() time.Time
}

func NewRouter(dispatcher *diagnosis.Dispatcher, logger *zap.Logger, opts Options) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{dispatcher: dispatcher, history: opts.History, logger: logger, now: opts.Now}

	router := gin.New()
	router.Use(
		requestLogger(logger),
		gin.Recovery(),
		limitBodySize(opts.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	if opts.StaticRoot != "" {
		router.Static("/static", opts.StaticRoot)
		router.StaticFile("/", filepath.Join(opts.StaticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.ready)

	api := router.Group("/api")
	{
		api.GET("/categories", s.listCategories)
		api.GET("/categories/:key", s.describeCategory)
		api.POST("/categories/:key/predict", s.predict)
		api.POST("/categories/:key/report", s.report)
		api.GET("/predictions", s.recentPredictions)
	}

	return router
}

func (s *Server) ready(c *gin.Context) {
	status := s.dispatcher.Registry().Status()
	available := s.dispatcher.Registry().AvailableCount()

	body := gin.H{"status": "ok", "models": status, "available": available}
	code := http.StatusOK
	if available == 0 {
		body["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	if s.history == nil {
		body["history"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.history.Ping(ctx); err != nil {
			body["history"] = fmt.Sprintf("unhealthy: %v", err)
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			body["history"] = "ok"
		}
	}

	c.JSON(code, body)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// DetectStaticRoot looks for web/index.html in the working directory and
// its two parents.
func DetectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "web"
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		web := filepath.Join(dir, "web")
		if fileExists(filepath.Join(web, "index.html")) {
			return web
		}
	}

	return filepath.Join(startDir, "web")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
