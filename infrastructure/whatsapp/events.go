package whatsapp

import (
	"strings"

	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func (c *connection) onEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		c.emit(sessions.Event{Kind: sessions.EventConnected, JID: c.ownJID(), Phone: c.ownPhone()})
	case *events.PairSuccess:
		logrus.Infof("[WHATSAPP] Device %s paired as %s", c.deviceID, evt.ID.String())
	case *events.LoggedOut:
		c.emit(sessions.Event{Kind: sessions.EventLoggedOut, Reason: "logged_out: " + evt.Reason.String()})
	case *events.StreamReplaced:
		c.emit(sessions.Event{Kind: sessions.EventDisconnected, Reason: "stream_replaced"})
	case *events.TemporaryBan:
		c.emit(sessions.Event{Kind: sessions.EventDisconnected, Reason: "temporary_ban: " + evt.String()})
	case *events.ConnectFailure:
		c.emit(sessions.Event{Kind: sessions.EventDisconnected, Reason: "connect_failure: " + evt.Reason.String()})
	case *events.Disconnected:
		c.emit(sessions.Event{Kind: sessions.EventDisconnected, Reason: "connection_lost"})
	case *events.Message:
		if msg := inboundFromEvent(c.deviceID, evt); msg != nil {
			c.emit(sessions.Event{Kind: sessions.EventMessage, Message: msg})
		}
	}
}

func (c *connection) ownJID() string {
	if c.client.Store == nil || c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.ToNonAD().String()
}

func (c *connection) ownPhone() string {
	if c.client.Store == nil || c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.User
}

// inboundFromEvent keeps text messages from other people; status broadcasts,
// own messages and media without caption are ignored.
func inboundFromEvent(deviceID string, evt *events.Message) *sessions.InboundMessage {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return nil
	}
	if evt.Info.Chat.Server == types.BroadcastServer {
		return nil
	}
	text := strings.TrimSpace(extractText(evt.Message))
	if text == "" {
		return nil
	}

	sender := evt.Info.Sender
	// LID senders carry the phone JID in SenderAlt
	if sender.Server == types.HiddenUserServer && !evt.Info.SenderAlt.IsEmpty() {
		sender = evt.Info.SenderAlt
	}

	return &sessions.InboundMessage{
		DeviceID:  deviceID,
		MessageID: evt.Info.ID,
		ChatJID:   evt.Info.Chat.String(),
		From:      sender.User,
		PushName:  evt.Info.PushName,
		Text:      text,
		IsGroup:   evt.Info.IsGroup,
		Timestamp: unixOrNow(evt.Info.Timestamp),
	}
}

func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if ephemeral := msg.GetEphemeralMessage(); ephemeral != nil {
		msg = ephemeral.GetMessage()
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}
