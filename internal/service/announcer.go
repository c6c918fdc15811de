package service

import (
	"context"
	"fmt"

	"leaderboard_miniapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type AnnouncerConfig struct {
	BotToken string
	ChatID   int64
	Debug    bool
}

// TelegramAnnouncer posts a line to a Telegram chat for every successful claim.
type TelegramAnnouncer struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramAnnouncer(config AnnouncerConfig) (*TelegramAnnouncer, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	return NewTelegramAnnouncerWithBot(bot, config.ChatID, config.Debug), nil
}

func NewTelegramAnnouncerWithBot(bot *tgbotapi.BotAPI, chatID int64, debug bool) *TelegramAnnouncer {
	bot.Debug = debug

	return &TelegramAnnouncer{
		bot:    bot,
		chatID: chatID,
	}
}

func (a *TelegramAnnouncer) AnnounceClaim(_ context.Context, user model.User, claim model.Claim) error {
	msg := tgbotapi.NewMessage(a.chatID, ClaimAnnouncement(user, claim))

	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send claim announcement: %w", err)
	}

	return nil
}

func ClaimAnnouncement(user model.User, claim model.Claim) string {
	text := fmt.Sprintf("%s claimed +%d points", user.Name, claim.Points)
	if claim.Message != "" {
		text += " (" + claim.Message + ")"
	}
	return text
}
