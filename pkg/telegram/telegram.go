// Package telegram implements the bot's chat transport over the
// Telegram Bot API with long polling. It converts inbound updates into
// conversation events and renders outbound prompts as inline keyboards.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/asanchezr/gastosbot/pkg/conversation"
)

// pollTimeout is the long-poll timeout in seconds.
const pollTimeout = 30

// Handler consumes inbound chat events.
type Handler interface {
	HandleStart(ctx context.Context, userID int64)
	HandleSelection(ctx context.Context, userID int64, token string)
	HandleText(ctx context.Context, userID int64, text string)
}

// Bot wraps the Telegram API for a single allow-listed user. Updates
// from any other identity are dropped before reaching the handler.
type Bot struct {
	api           *tgbotapi.BotAPI
	allowedUserID int64
	logger        *slog.Logger
}

// New connects to the Telegram API with the given bot token.
func New(token string, allowedUserID int64, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if allowedUserID == 0 {
		return nil, fmt.Errorf("allowed user ID is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	logger.Info("telegram bot connected", "username", api.Self.UserName)

	return &Bot{
		api:           api,
		allowedUserID: allowedUserID,
		logger:        logger,
	}, nil
}

// Run polls for updates and dispatches them to handler until ctx is
// canceled.
func (b *Bot) Run(ctx context.Context, handler Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("telegram bot started polling")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, handler, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, handler Handler, update tgbotapi.Update) {
	if q := update.CallbackQuery; q != nil && q.From != nil {
		// Answer the callback first so the client stops its spinner.
		if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			b.logger.Warn("failed to answer callback query", "error", err)
		}

		if !b.authorized(q.From.ID) {
			b.logger.Debug("rejected callback from unknown user", "user_id", q.From.ID)
			return
		}

		handler.HandleSelection(ctx, q.From.ID, q.Data)
		return
	}

	if m := update.Message; m != nil && m.From != nil {
		if !b.authorized(m.From.ID) {
			b.logger.Debug("rejected message from unknown user", "user_id", m.From.ID)
			// Only /start gets a visible rejection.
			if m.IsCommand() && m.Command() == "start" {
				if err := b.SendText(m.Chat.ID, "No tienes permiso."); err != nil {
					b.logger.Warn("failed to send rejection", "error", err)
				}
			}
			return
		}

		if m.IsCommand() {
			if m.Command() == "start" {
				handler.HandleStart(ctx, m.From.ID)
			}
			return
		}

		if text := strings.TrimSpace(m.Text); text != "" {
			handler.HandleText(ctx, m.From.ID, text)
		}
	}
}

func (b *Bot) authorized(userID int64) bool {
	return userID == b.allowedUserID
}

// SendText implements conversation.Chat.
func (b *Bot) SendText(userID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

// PromptChoice implements conversation.Chat.
func (b *Bot) PromptChoice(userID int64, text string, rows [][]conversation.Option) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = keyboard(rows)
	_, err := b.api.Send(msg)
	return err
}

// PromptFreeText implements conversation.Chat. The prompt carries the
// back-to-menu button so a typed step can still be abandoned.
func (b *Bot) PromptFreeText(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = keyboard([][]conversation.Option{
		{{Label: "⬅ Menú principal", Token: conversation.TokenMainMenu}},
	})
	_, err := b.api.Send(msg)
	return err
}

func keyboard(rows [][]conversation.Option) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, o := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Token))
		}
		kbRows = append(kbRows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}
