// ABOUTME: HTTP server wiring for the calendar sync boundary
// ABOUTME: Gin engine setup, routes, and health check
package web

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"nuconnect/sync"
)

type Server struct {
	database *sql.DB
	engine   *sync.Engine
	router   *gin.Engine
}

func NewServer(database *sql.DB, engine *sync.Engine, jwtSecret string) *Server {
	s := &Server{
		database: database,
		engine:   engine,
		router:   gin.New(),
	}

	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api", AuthMiddleware(jwtSecret))
	{
		google := api.Group("/calendar/google")
		google.GET("/auth-url", s.handleAuthURL)
		google.POST("/connect", s.handleConnect)
		google.POST("/disconnect", s.handleDisconnect)
		google.GET("/status", s.handleStatus)
		google.POST("/sync", s.handleSync)

		api.GET("/calendar/events", s.handleListEvents)
	}

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}
