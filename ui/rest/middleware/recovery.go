package middleware

import (
	"fmt"
	"net/http"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logrus.Errorf("[REST] Panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), recovered)

			if generic, ok := recovered.(pkgError.GenericError); ok {
				err = generic
				return
			}
			err = ctx.Status(http.StatusInternalServerError).
				JSON(utils.Failure("INTERNAL_SERVER_ERROR", fmt.Sprintf("%v", recovered), nil))
		}()

		return ctx.Next()
	}
}
