package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairdraw/internal/handler"
	"fairdraw/internal/middleware"
	"fairdraw/internal/service"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(drawService service.DrawService, authService service.AuthService, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	s.setupRoutes(drawService, authService)

	return s
}

func (s *Server) setupRoutes(drawService service.DrawService, authService service.AuthService) {
	authHandler := handler.NewAuthHandler(authService, s.logger)
	drawHandler := handler.NewDrawHandler(drawService, s.logger)
	verifyHandler := handler.NewVerifyHandler(drawService, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Public verification: third parties check published hashes here,
	// no token required.
	s.router.GET("/api/verify/:id", verifyHandler.Verify)

	// Operator routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(s.logger))
	{
		authRequired.POST("/draws", drawHandler.CreateDraw)
		authRequired.GET("/draws", drawHandler.ListDraws)
		authRequired.GET("/draws/:id", drawHandler.GetDraw)
		authRequired.POST("/draws/:id/entries", drawHandler.IngestEntries)
		authRequired.POST("/draws/:id/entries/csv", drawHandler.UploadEntriesCSV)
		authRequired.GET("/draws/:id/evaluation", drawHandler.Evaluate)
		authRequired.POST("/draws/:id/execute", drawHandler.Execute)
		authRequired.GET("/draws/:id/result", drawHandler.GetResult)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("port", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
