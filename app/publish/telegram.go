package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lysyi3m/rss-curator/app/database"
)

const defaultAPIURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("telegram bot token or chat ID not configured")

// Telegram posts approved items to a chat through the Bot API
type Telegram struct {
	token   string
	chatID  string
	apiURL  string
	client  *http.Client
	backoff func() backoff.BackOff
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 30 * time.Second},
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

func (t *Telegram) Configured() bool {
	return t.token != "" && t.chatID != ""
}

// FormatMessage renders an item as Telegram Markdown. The AI suggestion is
// used as the body when present, otherwise the summary.
func FormatMessage(item database.Item) string {
	content := item.Summary
	if item.AISuggestion != nil && strings.TrimSpace(*item.AISuggestion) != "" {
		content = *item.AISuggestion
	}
	return fmt.Sprintf("*%s*\n\n%s\n\n[Read more →](%s)", item.Title, content, item.Link)
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Publish sends one item to the configured chat
func (t *Telegram) Publish(ctx context.Context, item database.Item) error {
	if !t.Configured() {
		return ErrNotConfigured
	}

	form := url.Values{
		"chat_id":                  {t.chatID},
		"text":                     {FormatMessage(item)},
		"parse_mode":               {"Markdown"},
		"disable_web_page_preview": {"false"},
	}

	operation := func() error {
		return t.send(ctx, form)
	}

	if err := backoff.Retry(operation, backoff.WithContext(t.backoff(), ctx)); err != nil {
		return fmt.Errorf("failed to send to Telegram: %w", err)
	}

	slog.Info("Item sent to Telegram", "id", item.ID, "title", item.Title)

	return nil
}

func (t *Telegram) send(ctx context.Context, form url.Values) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", redactToken(err, t.token))
	}
	defer resp.Body.Close()

	var result sendResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(fmt.Errorf("HTTP error: %d %s", resp.StatusCode, result.Description))
	}
	if decodeErr != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if !result.OK {
		return backoff.Permanent(fmt.Errorf("telegram API error: %s", result.Description))
	}

	return nil
}

// net/http errors include the request URL, which carries the bot token
func redactToken(err error, token string) error {
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
