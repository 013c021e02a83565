// Package telegram adapts the Telegram Bot API to the bot's Event/Outcome
// shapes. It is plain wiring: no conversation or journal logic lives here.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dkurup/bujo-bot/internal/bot"
)

// Dispatch routes one event, normally a bot.Router's Dispatch method.
type Dispatch func(ctx context.Context, ev bot.Event) bot.Outcome

// Transport runs the long-polling loop and delivers outcomes. It also serves
// as the audit sink for rejected callers and the digest sender.
type Transport struct {
	api         *tgbotapi.BotAPI
	dispatch    Dispatch
	auditChatID int64
	log         zerolog.Logger
}

// New connects to the Bot API. auditChatID of 0 disables audit escalation.
// The dispatcher is attached afterwards with SetDispatch, since the router's
// middleware needs the transport as its audit sink.
func New(token string, auditChatID int64, log zerolog.Logger) (*Transport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connecting bot API: %w", err)
	}
	return &Transport{api: api, auditChatID: auditChatID, log: log}, nil
}

// SetDispatch attaches the event dispatcher. Must be called before Run.
func (t *Transport) SetDispatch(d Dispatch) { t.dispatch = d }

// Run polls for updates until the context is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	t.log.Info().Str("bot", t.api.Self.UserName).Msg("bot is running")

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return nil
		case update, open := <-updates:
			if !open {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			t.handle(ctx, update.Message)
		}
	}
}

func (t *Transport) handle(ctx context.Context, msg *tgbotapi.Message) {
	ev := bot.Event{
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
		Text:   msg.Text,
	}
	if msg.IsCommand() {
		ev.Command = msg.Command()
		ev.Text = msg.CommandArguments()
	}

	out := t.dispatch(ctx, ev)
	t.deliver(ev.ChatID, out)
}

func (t *Transport) deliver(chatID int64, out bot.Outcome) {
	if out.Reply != "" {
		m := tgbotapi.NewMessage(chatID, out.Reply)
		if out.Markdown {
			m.ParseMode = tgbotapi.ModeMarkdown
		}
		if _, err := t.api.Send(m); err != nil {
			t.log.Error().Err(err).Int64("chat_id", chatID).Msg("sending reply failed")
		}
	}
	if out.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  out.Document.Name,
			Bytes: out.Document.Data,
		})
		doc.Caption = out.Document.Caption
		if _, err := t.api.Send(doc); err != nil {
			t.log.Error().Err(err).Int64("chat_id", chatID).Msg("sending document failed")
		}
	}
}

// Escalate forwards a rejected caller's message to the audit chat.
func (t *Transport) Escalate(ctx context.Context, ev bot.Event, note string) error {
	if t.auditChatID == 0 {
		return nil
	}
	text := fmt.Sprintf("⚠️ %s\nfrom user %d in chat %d:\n%s", note, ev.UserID, ev.ChatID, ev.Text)
	if _, err := t.api.Send(tgbotapi.NewMessage(t.auditChatID, text)); err != nil {
		return fmt.Errorf("telegram: escalating to audit chat: %w", err)
	}
	return nil
}

// Send delivers a digest message.
func (t *Transport) Send(ctx context.Context, chatID int64, text string) error {
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: sending digest: %w", err)
	}
	return nil
}
