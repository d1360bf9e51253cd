package web

import (
	"context"
	"net/http"
	"time"

	"rental-agent/agent"
	"rental-agent/config"
	"rental-agent/database"
	"rental-agent/search"
	"rental-agent/web/handlers"
	"rental-agent/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	logger  *zap.Logger
	config  *config.Config
	limiter *middleware.SessionRateLimiter
}

func NewServer(cfg *config.Config, rentalAgent *agent.Agent, searcher *search.Hybrid, store *database.PostgresStore, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	limiter := middleware.NewSessionRateLimiter(middleware.RateLimiterConfig{
		MessagesPerMinute: cfg.RateLimitPerMin,
		BurstSize:         cfg.RateLimitBurstSize,
		CleanupInterval:   time.Hour,
	}, logger)

	server := &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		limiter: limiter,
	}

	chatHandler := handlers.NewChatHandler(rentalAgent, logger)
	searchHandler := handlers.NewSearchHandler(searcher, cfg.DefaultSearchLimit, cfg.MaxSearchLimit, logger)
	sessionHandler := handlers.NewSessionHandler(store, cfg.HistoryWindow, logger)

	api := router.Group("/api")
	api.Use(middleware.SessionMiddleware())
	{
		api.POST("/chat", middleware.RateLimitMessages(limiter), chatHandler.SendMessage)
		api.GET("/search", searchHandler.Search)
		api.GET("/sessions/:sessionID", sessionHandler.GetSession)
		api.GET("/sessions/:sessionID/history", sessionHandler.GetHistory)
		api.DELETE("/sessions/:sessionID", sessionHandler.DeleteSession)
	}

	return server
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		s.limiter.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
