package validations

import (
	"context"

	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxMessageLength = 4096

func ValidateCreateDevice(ctx context.Context, request domainDevice.CreateDeviceRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&request.PanelID, validation.Length(0, 64)),
	)
}

func ValidateUpdateDevice(ctx context.Context, request domainDevice.UpdateDeviceRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Name, validation.NilOrNotEmpty, validation.Length(1, 100)),
	)
}

func ValidateSendMessage(ctx context.Context, request domainDevice.SendMessageRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.To, validation.Required, validation.Length(3, 64)),
		validation.Field(&request.Message, validation.Required, validation.Length(1, maxMessageLength)),
	)
}

func ValidateRule(ctx context.Context, request domainAutoReply.RuleRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Keyword, validation.Required, validation.Length(1, 255)),
		validation.Field(&request.MatchType, validation.Required, validation.In(domainAutoReply.MatchTypes...)),
		validation.Field(&request.Response, validation.Required, validation.Length(1, maxMessageLength)),
		validation.Field(&request.Priority, validation.Min(0), validation.Max(1000)),
	)
}
