package realtime

// Events pushed to operators over the realtime channel.
const (
	EventDeviceStatus       = "device.status"
	EventDeviceQR           = "device.qr"
	EventMessageReceived    = "message.received"
	EventBroadcastProgress  = "broadcast.progress"
	EventBroadcastCompleted = "broadcast.completed"
	EventWalletUpdated      = "wallet.updated"
)

// Publisher delivers an event to every socket of one user.
type Publisher interface {
	PublishToUser(userID, event string, payload any)
}

// NopPublisher drops events. Used when realtime delivery is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishToUser(string, string, any) {}
