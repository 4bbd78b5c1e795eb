package rest

import (
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Panel struct {
	Service domainPanel.IPanelUsecase
}

func InitRestPanel(app fiber.Router, service domainPanel.IPanelUsecase) Panel {
	rest := Panel{Service: service}
	app.Get("/panels", rest.List)
	app.Post("/panels", rest.Create)
	app.Get("/panels/:id", rest.Get)
	app.Delete("/panels/:id", rest.Delete)
	app.Post("/panels/:id/check", rest.Check)
	app.Get("/panels/:id/services", rest.Services)
	return rest
}

func (handler *Panel) List(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	panels, total, err := handler.Service.List(c.UserContext(), middleware.UserID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(panels, page.Meta(total)))
}

func (handler *Panel) Create(c *fiber.Ctx) error {
	var request domainPanel.CreatePanelRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	panel, err := handler.Service.Create(c.UserContext(), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(panel))
}

func (handler *Panel) Get(c *fiber.Ctx) error {
	panel, err := handler.Service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(panel))
}

func (handler *Panel) Delete(c *fiber.Ctx) error {
	if err := handler.Service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(utils.Success(fiber.Map{"id": c.Params("id")}))
}

func (handler *Panel) Check(c *fiber.Ctx) error {
	panel, err := handler.Service.Check(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(panel))
}

func (handler *Panel) Services(c *fiber.Ctx) error {
	services, err := handler.Service.Services(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(services))
}
