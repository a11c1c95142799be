package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/config"
	"github.com/ifuryst/publish-studio/internal/service"
	"github.com/ifuryst/publish-studio/internal/service/queue"
)

type Server struct {
	Config    *config.Config
	Container *service.Container
	Router    *gin.Engine
	Logger    *zap.Logger
	Server    *http.Server

	consumer *queue.Consumer
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	container, err := service.NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(container), nil
}

// New builds the router on top of an assembled container.
func New(container *service.Container) *Server {
	// Set gin mode
	if container.Config.Server.Mode != "" {
		gin.SetMode(container.Config.Server.Mode)
	}

	srv := &Server{
		Config:    container.Config,
		Container: container,
		Router:    gin.New(),
		Logger:    container.Logger,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+userHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	s.Router.GET("/metrics", gin.WrapH(s.Container.Monitoring.Handler()))

	// API routes
	api := s.Router.Group("/api/v1", requireUser())
	{
		api.POST("/post.publish", s.handlePublish)
		api.POST("/post.edit", s.handleEdit)

		projects := api.Group("/projects")
		{
			projects.POST("", s.handleCreateProject)
			projects.GET("", s.handleListProjects)
			projects.GET("/:id", s.handleGetProject)
			projects.PUT("/:id", s.handleUpdateProject)
			projects.DELETE("/:id", s.handleDeleteProject)
			projects.GET("/:id/posts", s.handleListPosts)
		}

		connections := api.Group("/connections")
		{
			connections.GET("", s.handleListConnections)
			connections.PUT("/:platform", s.handleConnect)
			connections.DELETE("/:platform", s.handleDisconnect)
		}

		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/read", s.handleMarkNotificationsRead)
		api.GET("/errors", s.handleRecentErrors)
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s.Config.Queue.EmbeddedConsumer {
		s.consumer = s.Container.NewConsumer()
		if err := s.consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue consumer: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop consumer first
	if s.consumer != nil {
		s.consumer.Stop()
	}

	if s.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return s.Container.Close()
}
