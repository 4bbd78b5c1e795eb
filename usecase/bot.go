package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/botmonitor"
	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/sirupsen/logrus"
)

// BotPipeline answers inbound WhatsApp messages: panel commands first, then
// auto-reply rules.
type BotPipeline struct {
	devices   domainDevice.IDeviceRepository
	panels    domainPanel.IPanelUsecase
	autoReply domainAutoReply.IAutoReplyUsecase
	sender    MessageSender
	monitor   *botmonitor.Monitor
}

func NewBotPipeline(
	devices domainDevice.IDeviceRepository,
	panels domainPanel.IPanelUsecase,
	autoReply domainAutoReply.IAutoReplyUsecase,
	sender MessageSender,
) *BotPipeline {
	return &BotPipeline{devices: devices, panels: panels, autoReply: autoReply, sender: sender}
}

// WithMonitor records every handled message on m.
func (b *BotPipeline) WithMonitor(m *botmonitor.Monitor) *BotPipeline {
	b.monitor = m
	return b
}

// HandleInbound is installed as the session manager's inbound handler.
func (b *BotPipeline) HandleInbound(ctx context.Context, msg sessions.InboundMessage) error {
	if msg.IsGroup || strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	b.record(msg, botmonitor.StageInbound, botmonitor.StatusOK, nil, time.Time{})

	device, err := b.devices.GetByID(ctx, msg.DeviceID)
	if err != nil {
		b.record(msg, botmonitor.StageInbound, botmonitor.StatusError, err, time.Time{})
		return err
	}
	if !device.BotEnabled {
		return nil
	}

	started := time.Now()
	reply, source, err := b.reply(ctx, device, msg)
	if err != nil {
		b.record(msg, source, botmonitor.StatusError, err, started)
		return err
	}
	if reply == "" {
		b.record(msg, botmonitor.StageAutoRep, botmonitor.StatusSkipped, nil, started)
		return nil
	}
	b.record(msg, source, botmonitor.StatusOK, nil, started)

	to := msg.ChatJID
	if to == "" {
		to = msg.From
	}
	started = time.Now()
	if _, err := b.sender.SendText(ctx, msg.DeviceID, to, reply); err != nil {
		b.record(msg, botmonitor.StageOutbound, botmonitor.StatusError, err, started)
		return fmt.Errorf("send %s reply: %w", source, err)
	}
	b.record(msg, botmonitor.StageOutbound, botmonitor.StatusOK, nil, started)
	logrus.WithFields(logrus.Fields{
		"device_id": msg.DeviceID,
		"from":      msg.From,
		"source":    source,
	}).Debug("[BOT] Replied")
	return nil
}

func (b *BotPipeline) record(msg sessions.InboundMessage, stage, status string, err error, started time.Time) {
	if b.monitor == nil {
		return
	}
	e := botmonitor.Event{DeviceID: msg.DeviceID, ChatJID: msg.ChatJID, Stage: stage, Status: status}
	if err != nil {
		e.Error = err.Error()
	}
	if !started.IsZero() {
		e.DurationMs = time.Since(started).Milliseconds()
	}
	b.monitor.Record(e)
}

func (b *BotPipeline) reply(ctx context.Context, device *domainDevice.Device, msg sessions.InboundMessage) (string, string, error) {
	if device.PanelID != "" {
		if cmd, ok := domainPanel.ParseCommand(msg.Text); ok {
			results, err := b.panels.Execute(ctx, device.PanelID, cmd)
			if err != nil {
				logrus.WithError(err).Warnf("[BOT] Panel command failed on device %s", device.ID)
				return "Sorry, we could not reach the provider right now. Please try again later.", botmonitor.StageCommand, nil
			}
			return FormatCommandReply(cmd, results), botmonitor.StageCommand, nil
		}
	}

	rule, err := b.autoReply.Match(ctx, device.UserID, device.ID, msg.Text)
	if err != nil {
		return "", botmonitor.StageAutoRep, err
	}
	if rule == nil {
		return "", "", nil
	}
	return renderTemplate(rule.Response, msg), botmonitor.StageAutoRep, nil
}

// FormatCommandReply renders panel results as a WhatsApp message.
func FormatCommandReply(cmd domainPanel.Command, results []domainPanel.CommandResult) string {
	var sb strings.Builder
	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
		}
	}
	fmt.Fprintf(&sb, "*%s* for %d order(s)", strings.ToUpper(string(cmd.Action)), len(results))
	if failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", failed)
	}
	sb.WriteString("\n")
	for _, r := range results {
		mark := "✅"
		if r.Failed {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "\n%s #%s: %s", mark, r.OrderID, r.Message)
	}
	return sb.String()
}

// renderTemplate fills {name}, {phone} and {time} in auto-reply responses.
func renderTemplate(text string, msg sessions.InboundMessage) string {
	if !strings.Contains(text, "{") {
		return text
	}
	name := msg.PushName
	if name == "" {
		name = msg.From
	}
	return strings.NewReplacer(
		"{name}", name,
		"{phone}", msg.From,
		"{time}", msg.Timestamp.Format("15:04"),
	).Replace(text)
}
