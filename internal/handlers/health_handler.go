package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/talkah/talkah-backend/internal/dto"
)

type HealthHandler struct {
	ping func() error
}

// NewHealthHandler takes the database ping used to report readiness.
func NewHealthHandler(ping func() error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus, code := "ok", "ok", fiber.StatusOK
	if err := h.ping(); err != nil {
		status, dbStatus, code = "degraded", "unhealthy: "+err.Error(), fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}
