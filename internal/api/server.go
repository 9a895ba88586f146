// internal/api/server.go - HTTP API (상태 조회, 명령 제출, 라이브 상태 웹소켓)
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"boat-navigator/internal/command"
	"boat-navigator/internal/models"
	"boat-navigator/internal/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// StatusProvider 마지막 상태 스냅샷 (control.Loop)
type StatusProvider interface {
	LastStatus() models.Status
	Phase() string
}

// CommandHandler 명령 접수 (command.Handler)
type CommandHandler interface {
	Handle(raw, source string) command.Result
}

// Server echo 서버
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer 라우트 구성. room 은 nil 가능
func NewServer(addr string, h *Handler, room *Room) *Server {
	utils.Logger.Infof("🏗️ CREATING HTTP Server (%s)", addr)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(loggingMiddleware)

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.HealthCheck)
	v1.GET("/status", h.GetStatus)
	v1.POST("/commands", h.SubmitCommand)
	if room != nil {
		v1.GET("/ws", echo.WrapHandler(room))
	}

	utils.Logger.Infof("✅ HTTP Server CREATED")
	return &Server{echo: e, addr: addr}
}

// Handler http.Handler (테스트용)
func (s *Server) Handler() http.Handler { return s.echo }

// Start 블록. 정상 종료 시 nil
func (s *Server) Start() error {
	utils.Logger.Infof("🌐 HTTP SERVER LISTENING ON %s", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 우아한 종료
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func loggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		utils.Component("api").Debugf("%s %s %d %v", req.Method, req.RequestURI, c.Response().Status, time.Since(start))
		return err
	}
}
