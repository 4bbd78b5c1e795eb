package rest

import (
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/gofiber/fiber/v2"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return pkgError.ValidationError("invalid request body: " + err.Error())
	}
	return nil
}
