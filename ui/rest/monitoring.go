package rest

import (
	"github.com/mahalbangetid-beep/scb-sub003/pkg/botmonitor"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/msgworker"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// InitRestMonitoring exposes worker pool and bot pipeline statistics to admins.
func InitRestMonitoring(admin fiber.Router, pool *msgworker.Pool, monitor *botmonitor.Monitor) {
	admin.Get("/workers", func(c *fiber.Ctx) error {
		if pool == nil {
			return unavailable(c, "worker pool not initialized")
		}
		return c.JSON(utils.Success(pool.Stats()))
	})

	admin.Get("/bot/stats", func(c *fiber.Ctx) error {
		if monitor == nil {
			return unavailable(c, "bot monitor not initialized")
		}
		return c.JSON(utils.Success(monitor.GetStats()))
	})
}

func unavailable(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusServiceUnavailable).
		JSON(utils.Failure("SERVICE_UNAVAILABLE", message, nil))
}
