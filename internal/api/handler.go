// internal/api/handler.go
package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"boat-navigator/internal/common/constants"

	"github.com/labstack/echo/v4"
)

// Handler API 요청 처리
type Handler struct {
	status    StatusProvider
	commands  CommandHandler
	connected func() bool
}

// NewHandler connected 는 MQTT 연결 상태 (nil 가능)
func NewHandler(status StatusProvider, commands CommandHandler, connected func() bool) *Handler {
	return &Handler{status: status, commands: commands, connected: connected}
}

// CommandRequest POST /commands 본문
type CommandRequest struct {
	Command string `json:"command"`
}

func successResponse(message string, data interface{}) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "success",
		"message": message,
	}
	if data != nil {
		response["data"] = data
	}
	return response
}

func errorResponse(message string) map[string]interface{} {
	return map[string]interface{}{
		"status":  "error",
		"message": message,
	}
}

// HealthCheck 서비스 상태
func (h *Handler) HealthCheck(c echo.Context) error {
	data := map[string]interface{}{
		"service":   "boat-navigator",
		"phase":     h.status.Phase(),
		"timestamp": time.Now().Unix(),
	}
	if h.connected != nil {
		data["mqtt_connected"] = h.connected()
	}
	return c.JSON(http.StatusOK, successResponse("Service is healthy", data))
}

// GetStatus 마지막 상태 스냅샷
func (h *Handler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, successResponse("Status retrieved successfully", h.status.LastStatus()))
}

// SubmitCommand JSON {"command": "SET_LOAD;40"} 또는 text/plain 본문
func (h *Handler) SubmitCommand(c echo.Context) error {
	raw, err := readCommand(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	}
	if strings.TrimSpace(raw) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse("command is required"))
	}

	result := h.commands.Handle(raw, "http")
	switch result.Status {
	case constants.StatusSuccess:
		return c.JSON(http.StatusAccepted, successResponse("Command queued", result))
	case constants.StatusRejected:
		return c.JSON(http.StatusUnprocessableEntity, errorResponse(result.Message))
	default:
		return c.JSON(http.StatusBadRequest, errorResponse(result.Message))
	}
}

func readCommand(c echo.Context) (string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req CommandRequest
		if err := c.Bind(&req); err != nil {
			return "", err
		}
		return req.Command, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
