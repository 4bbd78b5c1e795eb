package rest

import (
	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	domainFonepay "github.com/mahalbangetid-beep/scb-sub003/domains/fonepay"
	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/botmonitor"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/msgworker"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

// Services bundles every use case served over REST.
type Services struct {
	Users         domainUser.IUserUsecase
	Devices       domainDevice.IDeviceUsecase
	AutoReplies   domainAutoReply.IAutoReplyUsecase
	Panels        domainPanel.IPanelUsecase
	Broadcasts    domainBroadcast.IBroadcastUsecase
	Wallet        domainWallet.IWalletUsecase
	Subscriptions domainSubscription.IResourceHook
	Fonepay       domainFonepay.IFonepayUsecase
	Health        domainHealth.IHealthUsecase
	Workers       *msgworker.Pool
	BotMonitor    *botmonitor.Monitor
}

// Register mounts all routes under api. Everything except login and
// registration requires a bearer token; /admin additionally requires the
// admin role.
func Register(api fiber.Router, tokens *security.TokenManager, svc Services) {
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": "pong"})
	})

	auth := InitRestAuth(api, svc.Users)

	protected := api.Group("", middleware.Auth(tokens))
	admin := protected.Group("/admin", middleware.RequireRole(domainUser.RoleAdmin))

	protected.Get("/auth/me", auth.Me)
	InitRestDevice(protected, svc.Devices)
	InitRestAutoReply(protected, svc.AutoReplies)
	InitRestPanel(protected, svc.Panels)
	InitRestBroadcast(protected, svc.Broadcasts)
	InitRestWallet(protected, admin, svc.Wallet, svc.Subscriptions)
	InitRestFonepay(protected, admin, svc.Fonepay)
	InitRestHealth(admin, svc.Health)
	InitRestMonitoring(admin, svc.Workers, svc.BotMonitor)
}
