package rest

import (
	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Auth struct {
	Service domainUser.IUserUsecase
}

// InitRestAuth registers the public auth routes. They must be mounted before
// any group that requires a token.
func InitRestAuth(public fiber.Router, service domainUser.IUserUsecase) Auth {
	rest := Auth{Service: service}
	public.Post("/auth/register", rest.Register)
	public.Post("/auth/login", rest.Login)
	return rest
}

func (handler *Auth) Register(c *fiber.Ctx) error {
	var request domainUser.RegisterRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	user, err := handler.Service.Register(c.UserContext(), request)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.Success(user))
}

func (handler *Auth) Login(c *fiber.Ctx) error {
	var request domainUser.LoginRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	response, err := handler.Service.Login(c.UserContext(), request)
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(response))
}

func (handler *Auth) Me(c *fiber.Ctx) error {
	user, err := handler.Service.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(user))
}
