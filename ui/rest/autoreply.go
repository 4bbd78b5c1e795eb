package rest

import (
	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type AutoReply struct {
	Service domainAutoReply.IAutoReplyUsecase
}

func InitRestAutoReply(app fiber.Router, service domainAutoReply.IAutoReplyUsecase) AutoReply {
	rest := AutoReply{Service: service}
	app.Get("/auto-replies", rest.List)
	app.Post("/auto-replies", rest.Create)
	app.Get("/auto-replies/:id", rest.Get)
	app.Put("/auto-replies/:id", rest.Update)
	app.Delete("/auto-replies/:id", rest.Delete)
	return rest
}

func (handler *AutoReply) List(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	rules, total, err := handler.Service.List(c.UserContext(), middleware.UserID(c), c.Query("device_id"), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(rules, page.Meta(total)))
}

func (handler *AutoReply) Create(c *fiber.Ctx) error {
	var request domainAutoReply.RuleRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	rule, err := handler.Service.Create(c.UserContext(), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(rule))
}

func (handler *AutoReply) Get(c *fiber.Ctx) error {
	rule, err := handler.Service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(rule))
}

func (handler *AutoReply) Update(c *fiber.Ctx) error {
	var request domainAutoReply.RuleRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	rule, err := handler.Service.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), request)
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(rule))
}

func (handler *AutoReply) Delete(c *fiber.Ctx) error {
	if err := handler.Service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(utils.Success(fiber.Map{"id": c.Params("id")}))
}
