package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Registrar accepts connections for the rooms of the hub.
type Registrar interface {
	Register() chan<- *types.RegistrationRequest
}

// TokenParser resolves a session token to its session id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	hub      Registrar
	sessions *controller.SessionController
	tokens   TokenParser
	checks   map[string]HealthCheck
	upgrader websocket.Upgrader
}

func NewServer(h Registrar, sessions *controller.SessionController, tokens TokenParser, checks map[string]HealthCheck) *Server {
	return &Server{
		hub:      h,
		sessions: sessions,
		tokens:   tokens,
		checks:   checks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Engine builds the gin router serving the REST API, the websocket endpoint
// and the health check.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api/sessions")
	api.POST("", s.sessions.Create)

	authed := api.Group("/:id", s.sessions.RequireSessionToken())
	authed.GET("", s.sessions.Get)
	authed.GET("/history", s.sessions.History)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.DebugContext(c.Request.Context(), "HTTP request",
			"http.method", c.Request.Method,
			"http.route", c.FullPath(),
			"http.status", c.Writer.Status(),
			"http.duration", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]any, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "Health check failed", "check", name, "error", err)
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.NewResponse(false, http.StatusServiceUnavailable, status))
		return
	}
	response.SuccessResponse(c, status)
}

// handleWebSocket authenticates the session token, upgrades the connection
// and hands it to the hub. Reconnects and extra tabs look the same here; the
// hub attaches them to the session's room.
func (s *Server) handleWebSocket(c *gin.Context) {
	r := c.Request
	ctx, span := tracer.Start(r.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", r.URL.Path),
		attribute.String("http.method", r.Method),
	))
	defer span.End()

	sessionID, err := s.tokens.ParseToken(c.Query("token"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid session token")
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	conn, err := s.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	p := player.NewPlayer(uuid.New().String(), sessionID, conn)
	span.SetAttributes(attribute.String("player.id", p.ID))

	req := &types.RegistrationRequest{
		Player:     p,
		SessionID:  sessionID,
		Mode:       c.Query("mode"),
		Difficulty: c.Query("difficulty"),
		// the hub keeps using the context after this handler returns
		Ctx: context.WithoutCancel(ctx),
	}
	select {
	case s.hub.Register() <- req:
	case <-ctx.Done():
		_ = conn.Close()
	}
}
