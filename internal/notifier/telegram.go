// Package notifier delivers run summaries and signal alerts to Telegram.
// It only consumes finished reports; nothing here calls back into the
// engine.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"galileo/internal/util"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier delivers a formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Compile-time interface checks.
var _ Notifier = (*Telegram)(nil)
var _ Notifier = (*Noop)(nil)

// Telegram sends messages via the Telegram Bot API.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	// BaseURL overrides the Bot API endpoint, for tests.
	BaseURL string

	log *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot and chat.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 30 * time.Second},
		log:      slog.Default().With("component", "telegram"),
	}
}

// Send posts one HTML-formatted message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	base := t.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)

	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message through util.Retry, up to maxAttempts calls
// with exponential backoff starting at one second.
func (t *Telegram) SendWithRetry(ctx context.Context, text string, maxAttempts int) error {
	attempt := 0
	return util.Retry(ctx, maxAttempts, time.Second, func() error {
		attempt++
		err := t.Send(ctx, text)
		if err != nil {
			t.log.Warn("send failed",
				"attempt", fmt.Sprintf("%d/%d", attempt, maxAttempts),
				"err", err,
			)
		}
		return err
	})
}

// Noop discards all messages. Used when notifications are disabled.
type Noop struct{}

// Send does nothing.
func (Noop) Send(context.Context, string) error { return nil }
