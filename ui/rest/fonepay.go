package rest

import (
	domainFonepay "github.com/mahalbangetid-beep/scb-sub003/domains/fonepay"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Fonepay struct {
	Service domainFonepay.IFonepayUsecase
}

// InitRestFonepay registers deposit submission for users and the review
// queue for admins.
func InitRestFonepay(app fiber.Router, admin fiber.Router, service domainFonepay.IFonepayUsecase) Fonepay {
	rest := Fonepay{Service: service}
	app.Post("/fonepay", rest.Submit)
	app.Get("/fonepay", rest.ListOwn)
	app.Get("/fonepay/:id", rest.GetOwn)

	admin.Get("/fonepay", rest.AdminList)
	admin.Post("/fonepay/:id/approve", rest.Approve)
	admin.Post("/fonepay/:id/reject", rest.Reject)
	admin.Post("/fonepay/:id/reconcile", rest.Reconcile)
	return rest
}

func (handler *Fonepay) Submit(c *fiber.Ctx) error {
	var request domainFonepay.SubmitRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	txn, err := handler.Service.Submit(c.UserContext(), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(txn))
}

func (handler *Fonepay) ListOwn(c *fiber.Ctx) error {
	return handler.list(c, domainFonepay.Filter{
		UserID: middleware.UserID(c),
		Status: domainFonepay.Status(c.Query("status")),
	})
}

func (handler *Fonepay) GetOwn(c *fiber.Ctx) error {
	txn, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if txn.UserID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		return pkgError.NotFoundError("fonepay transaction not found")
	}
	return c.JSON(utils.Success(txn))
}

func (handler *Fonepay) AdminList(c *fiber.Ctx) error {
	return handler.list(c, domainFonepay.Filter{
		UserID: c.Query("user_id"),
		Status: domainFonepay.Status(c.Query("status")),
	})
}

func (handler *Fonepay) list(c *fiber.Ctx, filter domainFonepay.Filter) error {
	page := utils.ParsePageRequest(c)
	items, total, err := handler.Service.List(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(items, page.Meta(total)))
}

func (handler *Fonepay) Approve(c *fiber.Ctx) error {
	txn, err := handler.Service.Approve(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(txn))
}

func (handler *Fonepay) Reject(c *fiber.Ctx) error {
	var request domainFonepay.RejectRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	txn, err := handler.Service.Reject(c.UserContext(), c.Params("id"), middleware.UserID(c), request)
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(txn))
}

func (handler *Fonepay) Reconcile(c *fiber.Ctx) error {
	txn, err := handler.Service.Reconcile(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(txn))
}
