package rest

import (
	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service domainHealth.IHealthUsecase
}

func InitRestHealth(admin fiber.Router, service domainHealth.IHealthUsecase) Health {
	rest := Health{Service: service}
	admin.Get("/health", rest.GetStatus)
	admin.Post("/health/check", rest.CheckAll)
	admin.Post("/health/panels/:id/check", rest.CheckPanel)
	admin.Post("/health/devices/:id/check", rest.CheckDevice)
	return rest
}

func (handler *Health) GetStatus(c *fiber.Ctx) error {
	records, err := handler.Service.GetStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(records))
}

func (handler *Health) CheckAll(c *fiber.Ctx) error {
	records, err := handler.Service.CheckAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(records))
}

func (handler *Health) CheckPanel(c *fiber.Ctx) error {
	record, err := handler.Service.CheckPanel(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(record))
}

func (handler *Health) CheckDevice(c *fiber.Ctx) error {
	record, err := handler.Service.CheckDevice(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(record))
}
