package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gnobounty/internal/model"
)

// Assembler is the read model served over HTTP.
type Assembler interface {
	Bounty(ctx context.Context, id uint64) *model.Bounty
	Bounties(ctx context.Context) []model.Bounty
	Applications(ctx context.Context, bountyID uint64) []model.Application
	Leaderboard(ctx context.Context) []model.LeaderboardEntry
	UserBounties(ctx context.Context, address string) []model.Bounty
	UserApplications(ctx context.Context, address string) []model.UserApplication
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes the assembler as a JSON API.
type Server struct {
	cfg       Config
	assembler Assembler
	logger    *zap.Logger
	router    *gin.Engine
}

// NewServer builds the router. Missing timeouts get conservative defaults.
func NewServer(cfg Config, assembler Assembler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, assembler: assembler, logger: logger.Named("api")}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(cors())
	router.Use(s.requestLogger())
	router.Use(gin.Recovery())
	s.setupRoutes(router)
	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/bounties", s.listBounties)
		api.GET("/bounties/:id", s.getBounty)
		api.GET("/bounties/:id/applications", s.listApplications)
		api.GET("/leaderboard", s.getLeaderboard)

		user := api.Group("/user/:address")
		user.GET("/bounties", s.userBounties)
		user.GET("/applications", s.userApplications)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) listBounties(c *gin.Context) {
	c.JSON(http.StatusOK, s.assembler.Bounties(c.Request.Context()))
}

func (s *Server) getBounty(c *gin.Context) {
	id, ok := bountyID(c)
	if !ok {
		return
	}
	bounty := s.assembler.Bounty(c.Request.Context(), id)
	if bounty == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bounty not found"})
		return
	}
	c.JSON(http.StatusOK, bounty)
}

func (s *Server) listApplications(c *gin.Context) {
	id, ok := bountyID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.assembler.Applications(c.Request.Context(), id))
}

func (s *Server) getLeaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.assembler.Leaderboard(c.Request.Context()))
}

func (s *Server) userBounties(c *gin.Context) {
	c.JSON(http.StatusOK, s.assembler.UserBounties(c.Request.Context(), c.Param("address")))
}

func (s *Server) userApplications(c *gin.Context) {
	c.JSON(http.StatusOK, s.assembler.UserApplications(c.Request.Context(), c.Param("address")))
}

func bountyID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bounty id"})
		return 0, false
	}
	return id, true
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	}
}
