package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"realtime-hub/contract"
	"realtime-hub/domain"
	"realtime-hub/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const userIDKey = "user_id"

type Authenticator interface {
	Validate(token string) (domain.UserID, error)
}

type Server struct {
	log           *slog.Logger
	authenticator Authenticator
	chat          contract.IChatService
	registry      contract.IRegistry
	router        contract.IRouter
	sessionConfig session.Config
	upgrader      websocket.Upgrader
	validate      *validator.Validate
	engine        *gin.Engine
}

// NewServer wires the HTTP boundary. An empty allowedOrigins accepts every origin.
func NewServer(log *slog.Logger,
	authenticator Authenticator,
	chat contract.IChatService,
	registry contract.IRegistry,
	router contract.IRouter,
	sessionConfig session.Config,
	allowedOrigins []string) *Server {
	s := &Server{
		log:           log,
		authenticator: authenticator,
		chat:          chat,
		registry:      registry,
		router:        router,
		sessionConfig: sessionConfig,
		validate:      validator.New(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowedOrigins) == 0 || origin == "" || lo.Contains(allowedOrigins, origin)
		},
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.loggerMiddleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/ws", s.authenticate(), s.serveWebsocket)

	v1 := s.engine.Group("/api/v1", s.authenticate())
	v1.GET("/presence", s.presence)
	v1.POST("/messages", s.sendMessage)
	v1.GET("/messages/:peer", s.history)
	v1.POST("/messages/:id/read", s.markAsRead)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled. Websocket actors inherit ctx, so they
// close their connections on shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
