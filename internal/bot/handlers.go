package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trendscout/internal/intent"
	"trendscout/internal/model"
	"trendscout/internal/storage"
	"trendscout/internal/trends"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Trendscout!

Find videos that are gaining views fast right now.

Quick start:
1. /trending cooking tips - rank fresh videos for a topic
2. /criteria - list the checklist labels
3. /watch <channel_id> - collect view history for a channel

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Ranking:
/trending <text> - rank videos for a free-text request
/trending <topic> followed by one checklist label per line - rank with explicit criteria
/criteria - show the checklist labels

Watched channels:
/watch <channel_id or URL> - poll a channel's feed for view snapshots
/watched - list watched channels
/unwatch <id> - stop watching a channel

Free-text hints: "viral", "this week", "not cooking", "in French", "in Brazil".`)
}

func (b *Bot) handleTrending(ctx context.Context, chatID int64, args string) {
	in := ParseTrendingArgs(args)
	if in.Empty() {
		b.reply(chatID, "Usage: /trending <text>")
		return
	}

	resp, err := b.ranker.Trending(ctx, in, intent.Overrides{})
	switch {
	case err == nil:
	case errors.Is(err, trends.ErrMissingQuery):
		b.reply(chatID, "Usage: /trending <text>")
		return
	case errors.Is(err, trends.ErrUpstream):
		b.log.Error("trending", "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to fetch videos: %v", err))
		return
	default:
		b.log.Error("trending", "chat_id", chatID, "error", err)
		b.reply(chatID, "Internal error, try again later.")
		return
	}

	b.reply(chatID, FormatResults(resp.Spec, resp.Results))
}

func (b *Bot) handleCriteria(chatID int64) {
	b.reply(chatID, FormatVocabulary(intent.Vocabulary()))
}

func (b *Bot) handleWatch(ctx context.Context, chatID int64, args string) {
	channelID, err := ParseChannelID(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%v\nUsage: /watch <channel_id>", err))
		return
	}

	feed, err := b.feeds.ChannelFeed(ctx, channelID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch channel feed: %v", err))
		return
	}

	title := feed.Title
	if title == "" {
		title = channelID
	}

	w := &model.WatchedChannel{ChatID: chatID, ChannelID: channelID, Title: title}
	if err := b.store.AddWatch(ctx, w); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			b.reply(chatID, fmt.Sprintf("Already watching %s.", title))
			return
		}
		b.reply(chatID, fmt.Sprintf("Failed to save channel: %v", err))
		return
	}

	b.log.Info("watch added", "chat_id", chatID, "channel_id", channelID, "videos", len(feed.Videos))
	b.reply(chatID, fmt.Sprintf("Watching #%d %s\n%d videos in feed. Views are sampled every %s.",
		w.ID, title, len(feed.Videos), b.cfg.SnapshotInterval))
}

func (b *Bot) handleUnwatch(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unwatch <id>")
		return
	}

	w, err := b.store.GetWatch(ctx, id)
	if err != nil || w.ChatID != chatID {
		b.reply(chatID, fmt.Sprintf("Channel #%d not found.", id))
		return
	}

	if err := b.store.DeleteWatch(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error removing channel: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Stopped watching #%d %s.", id, w.Title))
}

func (b *Bot) handleWatched(ctx context.Context, chatID int64) {
	watches, err := b.store.ListWatches(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatWatchList(watches))
	msg.DisableWebPagePreview = true
	if len(watches) > 0 {
		msg.ReplyMarkup = unwatchKeyboard(watches)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send watch list", "chat_id", chatID, "error", err)
	}
}

func unwatchKeyboard(watches []model.WatchedChannel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(watches))
	for _, w := range watches {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Unwatch #%d", w.ID), fmt.Sprintf("%s:%d", cmdUnwatch, w.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
