package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders every error returned by a handler as the JSON envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if generic, ok := pkgError.As(err); ok {
		status := generic.StatusCode()
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).Errorf("[REST] %s %s", c.Method(), c.Path())
		}
		var details any
		var validationErrs pkgError.ValidationErrors
		if errors.As(err, &validationErrs) {
			details = validationErrs.Details()
		}
		return c.Status(status).JSON(utils.Failure(generic.ErrCode(), generic.Error(), details))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
		if code == "" {
			code = "ERROR"
		}
		return c.Status(fiberErr.Code).JSON(utils.Failure(code, fiberErr.Message, nil))
	}

	logrus.WithError(err).Errorf("[REST] Unhandled error on %s %s", c.Method(), c.Path())
	return c.Status(http.StatusInternalServerError).
		JSON(utils.Failure("INTERNAL_SERVER_ERROR", "internal server error", nil))
}

// NotFound answers unknown routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(http.StatusNotFound).JSON(utils.Failure("NOT_FOUND", "route "+c.Method()+" "+c.Path()+" not found", nil))
}
