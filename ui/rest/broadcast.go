package rest

import (
	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Broadcast struct {
	Service domainBroadcast.IBroadcastUsecase
}

func InitRestBroadcast(app fiber.Router, service domainBroadcast.IBroadcastUsecase) Broadcast {
	rest := Broadcast{Service: service}
	app.Get("/broadcasts", rest.List)
	app.Post("/broadcasts", rest.Create)
	app.Get("/broadcasts/:id", rest.Get)
	app.Get("/broadcasts/:id/recipients", rest.Recipients)
	app.Post("/broadcasts/:id/cancel", rest.Cancel)
	return rest
}

func (handler *Broadcast) List(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	status := domainBroadcast.Status(c.Query("status"))
	items, total, err := handler.Service.List(c.UserContext(), middleware.UserID(c), status, page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(items, page.Meta(total)))
}

func (handler *Broadcast) Create(c *fiber.Ctx) error {
	var request domainBroadcast.CreateBroadcastRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	response, err := handler.Service.Create(c.UserContext(), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(response))
}

func (handler *Broadcast) Get(c *fiber.Ctx) error {
	item, err := handler.Service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(item))
}

func (handler *Broadcast) Recipients(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	items, total, err := handler.Service.Recipients(c.UserContext(), middleware.UserID(c), c.Params("id"), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(items, page.Meta(total)))
}

func (handler *Broadcast) Cancel(c *fiber.Ctx) error {
	item, err := handler.Service.Cancel(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(item))
}
