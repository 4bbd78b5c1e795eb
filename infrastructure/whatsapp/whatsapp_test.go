package whatsapp

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func textEvent(text string) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.NewJID("9779841234567", types.DefaultUserServer),
				Sender: types.NewJID("9779841234567", types.DefaultUserServer),
			},
			ID:        "MSG1",
			PushName:  "Ram",
			Timestamp: time.Unix(1700000000, 0),
		},
		Message: &waE2E.Message{Conversation: proto.String(text)},
	}
}

func TestInboundFromEvent(t *testing.T) {
	msg := inboundFromEvent("dev-1", textEvent("  status 123 "))
	require.NotNil(t, msg)
	assert.Equal(t, "dev-1", msg.DeviceID)
	assert.Equal(t, "9779841234567", msg.From)
	assert.Equal(t, "status 123", msg.Text)
	assert.Equal(t, "MSG1", msg.MessageID)
	assert.Equal(t, "9779841234567@s.whatsapp.net", msg.ChatJID)
	assert.False(t, msg.IsGroup)
}

func TestInboundFromEventSkipsUnsupported(t *testing.T) {
	own := textEvent("hi")
	own.Info.IsFromMe = true
	assert.Nil(t, inboundFromEvent("d", own))

	status := textEvent("hi")
	status.Info.Chat = types.NewJID("status", types.BroadcastServer)
	assert.Nil(t, inboundFromEvent("d", status))

	empty := textEvent("")
	assert.Nil(t, inboundFromEvent("d", empty))
}

func TestInboundFromEventResolvesLIDSender(t *testing.T) {
	evt := textEvent("hello")
	evt.Info.Sender = types.NewJID("123456789", types.HiddenUserServer)
	evt.Info.SenderAlt = types.NewJID("9779841234567", types.DefaultUserServer)

	msg := inboundFromEvent("d", evt)
	require.NotNil(t, msg)
	assert.Equal(t, "9779841234567", msg.From)
}

func TestExtractText(t *testing.T) {
	assert.Equal(t, "ext", extractText(&waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("ext")},
	}))
	assert.Equal(t, "caption", extractText(&waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("caption")},
	}))
	assert.Equal(t, "inner", extractText(&waE2E.Message{
		EphemeralMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{Conversation: proto.String("inner")},
		},
	}))
	assert.Empty(t, extractText(nil))
}

func TestRecipientJID(t *testing.T) {
	jid, err := recipientJID("9779841234567")
	require.NoError(t, err)
	assert.Equal(t, "9779841234567@s.whatsapp.net", jid.String())

	jid, err = recipientJID("120363000000000000@g.us")
	require.NoError(t, err)
	assert.Equal(t, types.GroupServer, jid.Server)

	_, err = recipientJID("abc")
	assert.Error(t, err)
}

func TestRenderQR(t *testing.T) {
	img, err := RenderQR("2@abcdef,123,456")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img, "data:image/png;base64,"))
}

func testFactory(t *testing.T) (*Factory, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		App:      config.AppConfig{OS: "SCB", Version: "test"},
		Paths:    config.PathsConfig{Sessions: dir},
		Whatsapp: config.WhatsappConfig{LogLevel: "ERROR"},
	}
	return NewFactory(cfg, nil), dir
}

func TestFactoryUnpairedStoreIsNotASession(t *testing.T) {
	f, dir := testFactory(t)
	ctx := context.Background()

	assert.False(t, f.HasSession("dev-unpaired"))

	conn, err := f.Open(ctx, "dev-unpaired", nil)
	require.NoError(t, err)
	assert.False(t, conn.IsLoggedIn())
	require.NoError(t, conn.Close())

	// the store file exists now but holds no paired device
	assert.True(t, utils.FileExists(utils.SessionStorePath(dir, "dev-unpaired")))
	assert.False(t, f.HasSession("dev-unpaired"))
}

func TestFactoryPurgeRemovesStoreFiles(t *testing.T) {
	f, dir := testFactory(t)

	conn, err := f.Open(context.Background(), "dev-1", nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, f.Purge("dev-1"))
	assert.False(t, f.HasSession("dev-1"))
	for _, path := range utils.SessionStoreFiles(dir, "dev-1") {
		assert.False(t, utils.FileExists(path))
	}

	// purging twice is harmless
	assert.NoError(t, f.Purge("dev-1"))
}

func TestFactoryCorruptStoreIsNotASession(t *testing.T) {
	f, dir := testFactory(t)
	require.NoError(t, os.WriteFile(utils.SessionStorePath(dir, "dev-1"), []byte("x"), 0o600))
	assert.False(t, f.HasSession("dev-1"))
}

func TestQRChannelErrorEndsPairing(t *testing.T) {
	var got []sessions.Event
	conn := &connection{deviceID: "dev-1", handler: func(evt sessions.Event) { got = append(got, evt) }}

	ch := make(chan whatsmeow.QRChannelItem, 3)
	ch <- whatsmeow.QRChannelItem{Event: "code", Code: "2@abc,def,ghi"}
	ch <- whatsmeow.QRChannelClientOutdated
	close(ch)
	conn.consumeQR(ch)

	require.Len(t, got, 2)
	assert.Equal(t, sessions.EventQR, got[0].Kind)
	assert.True(t, strings.HasPrefix(got[0].QRImage, "data:image/png;base64,"))
	assert.Equal(t, sessions.EventQRTimeout, got[1].Kind)
	assert.Equal(t, "err-client-outdated", got[1].Reason)
}

func TestQRChannelTimeout(t *testing.T) {
	var got []sessions.Event
	conn := &connection{deviceID: "dev-1", handler: func(evt sessions.Event) { got = append(got, evt) }}

	ch := make(chan whatsmeow.QRChannelItem, 1)
	ch <- whatsmeow.QRChannelTimeout
	close(ch)
	conn.consumeQR(ch)

	require.Len(t, got, 1)
	assert.Equal(t, sessions.EventQRTimeout, got[0].Kind)
	assert.Equal(t, "qr_timeout", got[0].Reason)
}
