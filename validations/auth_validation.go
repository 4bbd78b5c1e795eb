package validations

import (
	"context"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateRegister(ctx context.Context, request domainUser.RegisterRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&request.Email, validation.Required, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&request.Password, validation.Required, validation.Length(8, 72)),
	)
}

func ValidateLogin(ctx context.Context, request domainUser.LoginRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Email, validation.Required),
		validation.Field(&request.Password, validation.Required),
	)
}
