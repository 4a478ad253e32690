package channel

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"go.uber.org/zap"
)

const telegramChannelName = "telegram"

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramChannel sends every alert to the configured chats.
type TelegramChannel struct {
	token      string
	proxy      string
	chatIDs    []int64
	bot        TelegramBot
	botFactory BotFactory
	logger     *zap.Logger
}

func NewTelegramChannel(cfg config.TelegramConfig, logger *zap.Logger) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, logger, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with custom bot factory (for testing)
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, logger *zap.Logger, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, fmt.Errorf("telegram needs at least one chat id")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramChannel{
		token:      cfg.Token,
		proxy:      cfg.Proxy,
		chatIDs:    append([]int64(nil), cfg.ChatIDs...),
		botFactory: factory,
		logger:     logger,
	}, nil
}

func (t *TelegramChannel) Name() string { return telegramChannelName }

func (t *TelegramChannel) Start(ctx context.Context) error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram authorized", zap.String("bot", bot.GetSelf().UserName))
	return nil
}

func (t *TelegramChannel) Stop() error { return nil }

// Deliver sends a to every chat. It keeps going after a failed chat and
// returns the first error.
func (t *TelegramChannel) Deliver(a notify.Alert) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	var firstErr error
	for _, chatID := range t.chatIDs {
		msg := tgbotapi.NewMessage(chatID, alertHTML(a))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without HTML parse mode
			msg.ParseMode = ""
			msg.Text = a.Title + "\n" + a.Body
			if _, err2 := t.bot.Send(msg); err2 != nil {
				t.logger.Warn("telegram send failed", zap.Int64("chat", chatID), zap.Error(err2))
				if firstErr == nil {
					firstErr = fmt.Errorf("send telegram message to %d: %w", chatID, err2)
				}
			}
		}
	}
	return firstErr
}

func alertHTML(a notify.Alert) string {
	return "<b>" + html.EscapeString(a.Title) + "</b>\n" + html.EscapeString(a.Body)
}
