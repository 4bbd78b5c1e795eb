package rest

import (
	"fmt"

	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Wallet struct {
	Service       domainWallet.IWalletUsecase
	Subscriptions domainSubscription.IResourceHook
}

// InitRestWallet registers balance and subscription routes for users and
// manual adjustments on the admin router.
func InitRestWallet(app fiber.Router, admin fiber.Router, service domainWallet.IWalletUsecase, subscriptions domainSubscription.IResourceHook) Wallet {
	rest := Wallet{Service: service, Subscriptions: subscriptions}
	app.Get("/wallet", rest.Get)
	app.Get("/wallet/transactions", rest.Transactions)
	app.Get("/subscriptions", rest.ListSubscriptions)
	admin.Post("/wallet/credit", rest.AdminCredit)
	admin.Post("/wallet/debit", rest.AdminDebit)
	return rest
}

func (handler *Wallet) Get(c *fiber.Ctx) error {
	wallet, err := handler.Service.GetWallet(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(wallet))
}

func (handler *Wallet) Transactions(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	items, total, err := handler.Service.ListTransactions(c.UserContext(), middleware.UserID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(items, page.Meta(total)))
}

func (handler *Wallet) ListSubscriptions(c *fiber.Ctx) error {
	page := utils.ParsePageRequest(c)
	items, total, err := handler.Subscriptions.List(c.UserContext(), middleware.UserID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(utils.Paginated(items, page.Meta(total)))
}

func (handler *Wallet) AdminCredit(c *fiber.Ctx) error {
	return handler.adjust(c, domainWallet.TxnCredit)
}

func (handler *Wallet) AdminDebit(c *fiber.Ctx) error {
	return handler.adjust(c, domainWallet.TxnDebit)
}

func (handler *Wallet) adjust(c *fiber.Ctx, kind domainWallet.TxnType) error {
	var request domainWallet.AdjustRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := validations.ValidateWalletAdjust(ctx, request); err != nil {
		return err
	}

	reference := fmt.Sprintf("admin:%s:%s", middleware.UserID(c), uuid.NewString())
	var (
		txn domainWallet.Transaction
		err error
	)
	if kind == domainWallet.TxnCredit {
		txn, err = handler.Service.Credit(ctx, request.UserID, request.Amount, reference, request.Description)
	} else {
		txn, err = handler.Service.Debit(ctx, request.UserID, request.Amount, reference, request.Description)
	}
	if err != nil {
		return err
	}
	return c.JSON(utils.Success(txn))
}
