package validations

import (
	"context"
	"time"

	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	domainFonepay "github.com/mahalbangetid-beep/scb-sub003/domains/fonepay"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	maxBroadcastRecipients = 5000
	maxTopUpAmount         = 1_000_000
)

func ValidateCreateBroadcast(ctx context.Context, request domainBroadcast.CreateBroadcastRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.DeviceID, validation.Required),
		validation.Field(&request.Name, validation.Required, validation.Length(1, 150)),
		validation.Field(&request.Message, validation.Required, validation.Length(1, maxMessageLength)),
		validation.Field(&request.Recipients, validation.Required, validation.Length(1, maxBroadcastRecipients)),
		validation.Field(&request.ScheduledAt, validation.By(notTooFarInPast)),
	)
}

// notTooFarInPast tolerates clock skew but rejects obviously stale schedules.
func notTooFarInPast(value any) error {
	at, ok := value.(*time.Time)
	if !ok || at == nil {
		return nil
	}
	if at.Before(time.Now().Add(-24 * time.Hour)) {
		return validation.NewError("validation_scheduled_at_past", "must not be more than a day in the past")
	}
	return nil
}

func ValidateCreatePanel(ctx context.Context, request domainPanel.CreatePanelRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&request.URL, validation.Required, is.URL, validation.Length(1, 500)),
		validation.Field(&request.APIKey, validation.Required, validation.Length(8, 255)),
	)
}

func ValidateFonepaySubmit(ctx context.Context, request domainFonepay.SubmitRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Amount, validation.Required, validation.Min(1.0), validation.Max(float64(maxTopUpAmount))),
		validation.Field(&request.TxnRef, validation.Required, validation.Length(4, 64), is.Alphanumeric.Error("must contain only letters and digits")),
	)
}

func ValidateFonepayReject(ctx context.Context, request domainFonepay.RejectRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.Reason, validation.Required, validation.Length(3, 500)),
	)
}

func ValidateWalletAdjust(ctx context.Context, request domainWallet.AdjustRequest) error {
	return validate(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&request.Description, validation.Required, validation.Length(3, 255)),
	)
}
