package rest

import (
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Device struct {
	Service domainDevice.IDeviceUsecase
}

func InitRestDevice(app fiber.Router, service domainDevice.IDeviceUsecase) Device {
	rest := Device{Service: service}
	app.Get("/devices", rest.List)
	app.Post("/devices", rest.Create)
	app.Get("/devices/:id", rest.Get)
	app.Put("/devices/:id", rest.Update)
	app.Delete("/devices/:id", rest.Delete)
	app.Post("/devices/:id/connect", rest.Connect)
	app.Post("/devices/:id/restart", rest.Restart)
	app.Get("/devices/:id/status", rest.Status)
	app.Post("/devices/:id/logout", rest.Logout)
	app.Post("/devices/:id/send", rest.SendMessage)
	return rest
}

func (handler *Device) List(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	devices, total, err := handler.Service.List(c.UserContext(), middleware.UserID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(devices, page.Meta(total)))
}

func (handler *Device) Create(c *fiber.Ctx) error {
	var request domainDevice.CreateDeviceRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	device, err := handler.Service.Create(c.UserContext(), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(device))
}

func (handler *Device) Get(c *fiber.Ctx) error {
	device, err := handler.Service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(device))
}

func (handler *Device) Update(c *fiber.Ctx) error {
	var request domainDevice.UpdateDeviceRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	device, err := handler.Service.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), request)
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(device))
}

func (handler *Device) Delete(c *fiber.Ctx) error {
	if err := handler.Service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(utils.Success(fiber.Map{"id": c.Params("id")}))
}

func (handler *Device) Connect(c *fiber.Ctx) error {
	info, err := handler.Service.Connect(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(info))
}

func (handler *Device) Restart(c *fiber.Ctx) error {
	info, err := handler.Service.Restart(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(info))
}

func (handler *Device) Status(c *fiber.Ctx) error {
	info, err := handler.Service.Status(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(info))
}

func (handler *Device) Logout(c *fiber.Ctx) error {
	if err := handler.Service.Logout(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(utils.Success(fiber.Map{"id": c.Params("id")}))
}

func (handler *Device) SendMessage(c *fiber.Ctx) error {
	var request domainDevice.SendMessageRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	response, err := handler.Service.SendMessage(c.UserContext(), middleware.UserID(c), c.Params("id"), request)
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(response))
}
