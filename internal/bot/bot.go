// Package bot implements the Telegram surface of the ranking service.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trendscout/internal/config"
	"trendscout/internal/intent"
	"trendscout/internal/storage"
	"trendscout/internal/trends"
	"trendscout/internal/youtube"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Ranker runs ranking requests.
type Ranker interface {
	Trending(ctx context.Context, in intent.Input, o intent.Overrides) (*trends.Response, error)
}

// FeedSource downloads the feed of a channel.
type FeedSource interface {
	ChannelFeed(ctx context.Context, channelID string) (*youtube.Feed, error)
}

// Bot is the Telegram bot that answers ranking queries and manages watched channels.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	cfg    *config.Config
	ranker Ranker
	feeds  FeedSource
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, ranker and config.
func New(token string, store storage.Storage, ranker Ranker, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		cfg:    cfg,
		ranker: ranker,
		feeds:  youtube.NewFeedClient(http.DefaultClient),
		log:    log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "trending":
		b.handleTrending(ctx, chatID, args)
	case "criteria":
		b.handleCriteria(chatID)
	case cmdWatch:
		b.handleWatch(ctx, chatID, args)
	case cmdUnwatch:
		b.handleUnwatch(ctx, chatID, args)
	case "watched":
		b.handleWatched(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
