package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultRetries = 3

// botAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot     botAPI
	chatID  int64
	Retries int

	newBackOff func() backoff.BackOff

	mu           sync.Mutex
	lastStatusID int

	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 75 * time.Second, Transport: transport}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	n := newTelegramNotifier(bot, chatID)
	n.logger.Info().Str("username", bot.Self.UserName).Msg("authorized on telegram")
	return n, nil
}

func newTelegramNotifier(bot botAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		Retries: defaultRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// Send posts text to the configured chat, retrying with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	_, err := t.send(ctx, text)
	return err
}

// ReplaceStatus deletes the previous status message, if any, and posts text in its place.
func (t *TelegramNotifier) ReplaceStatus(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastStatusID != 0 {
		del := tgbotapi.NewDeleteMessage(t.chatID, t.lastStatusID)
		if _, err := t.bot.Request(del); err != nil {
			t.logger.Warn().Err(err).Int("message_id", t.lastStatusID).Msg("delete previous status failed")
		}
		t.lastStatusID = 0
	}

	msg, err := t.send(ctx, text)
	if err != nil {
		return err
	}
	t.lastStatusID = msg.MessageID
	return nil
}

func (t *TelegramNotifier) send(ctx context.Context, text string) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	attempt := 0
	operation := func() error {
		attempt++
		cfg := tgbotapi.NewMessage(t.chatID, text)
		cfg.ParseMode = tgbotapi.ModeHTML
		cfg.DisableWebPagePreview = true
		msg, err := t.bot.Send(cfg)
		if err != nil {
			t.logger.Warn().Err(err).Int("attempt", attempt).Msg("telegram send failed")
			return err
		}
		sent = msg
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), uint64(t.Retries)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return sent, fmt.Errorf("telegram send after %d attempts: %w", attempt, err)
	}
	return sent, nil
}

// StartPolling receives commands from the configured chat and replies with the
// handler's output. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) handleUpdate(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	t.logger.Info().Str("command", text).Msg("received command")

	reply := handler(text)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, reply); err != nil {
		t.logger.Error().Err(err).Msg("send reply failed")
	}
}
