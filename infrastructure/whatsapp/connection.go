package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

const qrImageSize = 256

// connection adapts one whatsmeow client to sessions.Connection.
type connection struct {
	deviceID  string
	client    *whatsmeow.Client
	container *sqlstore.Container // owned per-device store, nil when shared
	handler   func(sessions.Event)
	handlerID uint32

	mu       sync.Mutex
	qrCancel context.CancelFunc
	closed   bool
}

func (c *connection) Connect(ctx context.Context) error {
	if c.client.Store.ID != nil {
		return c.client.Connect()
	}

	// the QR channel must exist before connecting and outlives the request ctx
	qrCtx, cancel := context.WithCancel(context.Background())
	qrChan, err := c.client.GetQRChannel(qrCtx)
	if err != nil {
		cancel()
		return err
	}
	c.mu.Lock()
	c.qrCancel = cancel
	c.mu.Unlock()

	go c.consumeQR(qrChan)

	if err := c.client.Connect(); err != nil {
		cancel()
		return err
	}
	return nil
}

func (c *connection) consumeQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			img, err := RenderQR(item.Code)
			if err != nil {
				logrus.Warnf("[WHATSAPP] Failed to render QR for device %s: %v", c.deviceID, err)
			}
			c.emit(sessions.Event{Kind: sessions.EventQR, QRCode: item.Code, QRImage: img})
		case "timeout":
			c.emit(sessions.Event{Kind: sessions.EventQRTimeout, Reason: "qr_timeout"})
		case "success":
			// Connected follows from the event handler
		default:
			// err-client-outdated, err-scanned-without-multidevice, err-unexpected-state...
			logrus.Warnf("[WHATSAPP] QR pairing for device %s ended with %s: %v", c.deviceID, item.Event, item.Error)
			c.emit(sessions.Event{Kind: sessions.EventQRTimeout, Reason: item.Event})
		}
	}
}

func (c *connection) emit(evt sessions.Event) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.handler == nil {
		return
	}
	c.handler(evt)
}

func (c *connection) Disconnect() {
	c.client.Disconnect()
}

func (c *connection) Logout(ctx context.Context) error {
	if !c.client.IsLoggedIn() {
		return nil
	}
	return c.client.Logout(ctx)
}

func (c *connection) IsConnected() bool { return c.client.IsConnected() }

func (c *connection) IsLoggedIn() bool { return c.client.IsLoggedIn() }

func (c *connection) SendText(ctx context.Context, to, text string) (string, error) {
	jid, err := recipientJID(to)
	if err != nil {
		return "", err
	}
	resp, err := c.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.qrCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.client.RemoveEventHandler(c.handlerID)
	c.client.Disconnect()
	if c.container != nil {
		return c.container.Close()
	}
	return nil
}

// recipientJID accepts a full JID or a normalized phone number.
func recipientJID(to string) (types.JID, error) {
	to = strings.TrimSpace(to)
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, pkgError.ValidationError(fmt.Sprintf("invalid recipient %q", to))
		}
		return jid, nil
	}
	phone, err := utils.NormalizePhone(to, "")
	if err != nil {
		return types.EmptyJID, pkgError.ValidationError(fmt.Sprintf("invalid recipient %q", to))
	}
	return types.NewJID(phone, types.DefaultUserServer), nil
}

// RenderQR turns a pairing code into a PNG data URL.
func RenderQR(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func unixOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
