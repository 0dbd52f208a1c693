package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot sends console warnings to every subscribed chat.
type Bot struct {
	api   *tgbotapi.BotAPI
	store *Store
}

func NewBot(store *Store, token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:   api,
		store: store,
	}, nil
}

// Subscribe adds chats configured up front, so that they do not need to send /start.
func (b *Bot) Subscribe(ctx context.Context, chatIDs ...int64) error {
	for _, id := range chatIDs {
		if err := b.store.InsertChat(ctx, &Chat{ID: id}); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
	}
	return nil
}

func (b *Bot) Broadcast(ctx context.Context, message string) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, chat := range chats {
		msg := tgbotapi.NewMessage(chat.ID, message)
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) BroadcastSlogRecord(ctx context.Context, r slog.Record, attrs []slog.Attr) error {
	return b.Broadcast(ctx, formatRecord(r, attrs))
}

func formatRecord(r slog.Record, attrs []slog.Attr) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", r.Level, r.Message)
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&sb, "\n%s: %s", a.Key, a.Value)
		return true
	}
	for _, a := range attrs {
		write(a)
	}
	r.Attrs(write)
	return sb.String()
}

func (b *Bot) Listen(ctx context.Context) error {
	offset, err := b.store.GetUpdatesOffset(ctx)
	if err != nil {
		return fmt.Errorf("get updates offset: %w", err)
	}
	updates := b.api.GetUpdatesChan(tgbotapi.UpdateConfig{Offset: offset, Timeout: 60})
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.InfoContext(ctx, "stopping listening for telegram updates")
			return nil
		case update := <-updates:
			if update.Message != nil && update.Message.IsCommand() {
				if err := b.handleCommand(ctx, update.Message); err != nil {
					slog.ErrorContext(ctx, "handle command", "error", err)
				}
			}

			if err := b.store.SetUpdatesOffset(ctx, update.UpdateID+1); err != nil {
				slog.ErrorContext(ctx, "set updates offset", "error", err)
			}
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "stop":
		return b.handleStop(ctx, message)
	default:
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	chat := Chat{
		ID:        message.Chat.ID,
		FirstName: message.Chat.FirstName,
	}
	if err := b.store.InsertChat(ctx, &chat); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	_, err := b.api.Send(tgbotapi.NewMessage(chat.ID, "You will receive attendance console warnings here. Send /stop to unsubscribe."))
	return err
}

func (b *Bot) handleStop(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.store.DeleteChat(ctx, message.Chat.ID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}
