package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"homebot/internal/usecase"
)

// RegisterRoutes mounts the webhook and health check on an echo server.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.Health)
	e.POST("/api/messages", h.Messages)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Messages(c echo.Context) error {
	corrID := correlationID(map[string]string{
		correlationHeader: c.Request().Header.Get(correlationHeader),
	})
	c.Response().Header().Set(correlationHeader, corrID)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "unreadable_body"})
	}
	status, payload := h.serve(c.Request().Context(), body, corrID)
	return c.JSON(status, payload)
}
