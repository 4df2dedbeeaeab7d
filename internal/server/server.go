package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raine/ai-camera-cloud/internal/pipeline"
	"github.com/rs/zerolog/log"
)

const (
	ServiceName    = "AI相机云端服务"
	ServiceVersion = "1.0.0"
)

// Options configure the HTTP gateway.
type Options struct {
	Addr               string
	AllowOrigins       []string
	ExposeErrorDetails bool
	MaxUploadBytes     int64
	ShutdownTimeout    time.Duration
}

// Server is the HTTP gateway in front of the analysis orchestrator.
type Server struct {
	orch   *pipeline.Orchestrator
	opts   Options
	engine *gin.Engine
}

// New builds the gin engine and registers all routes.
func New(orch *pipeline.Orchestrator, opts Options) *Server {
	s := &Server{orch: orch, opts: opts}

	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(),
		gin.CustomRecovery(s.recover),
		cors.New(corsConfig(opts.AllowOrigins)),
	)

	r.GET("/", s.handleRoot)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/web-search", s.handleWebSearch)
		api.POST("/price-check", s.handlePriceCheck)

		uploads := api.Group("", limitBody(opts.MaxUploadBytes))
		uploads.POST("/llava-analyze", s.handleLlavaAnalyze)
		uploads.POST("/analyze", s.handleAnalyze)
	}

	s.engine = r
	return s
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.opts.Addr).Bool("liveModel", s.orch.Live()).Msg("http server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
