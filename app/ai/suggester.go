package ai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	maxLength      = 280
	maxRetries     = 3
)

const suggestPrompt = `Rewrite this RSS feed content for Telegram in a concise, professional, and engaging style:

Title: %s
Summary: %s

Requirements:
- Maximum 280 characters
- Include key points and insights
- Use engaging language suitable for social media
- Maintain professional tone
- Add relevant emojis if appropriate

Return only the rewritten content, nothing else.`

// Suggester rewrites items into short channel-ready text using the OpenAI
// chat completions API
type Suggester struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	backoff func() backoff.BackOff
}

func NewSuggester(apiKey, model string) *Suggester {
	return &Suggester{
		apiKey:  apiKey,
		model:   cmp.Or(model, defaultModel),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

func (s *Suggester) Configured() bool {
	return s.apiKey != ""
}

// Suggest returns a rewrite of at most 280 characters. Without an API key it
// returns the summary, or the title when the summary is empty. When the API
// fails the same fallback is returned together with the error.
func (s *Suggester) Suggest(ctx context.Context, title, summary string) (string, error) {
	fallback := cmp.Or(strings.TrimSpace(summary), title)

	if !s.Configured() {
		slog.Debug("OpenAI not configured, returning original summary", "title", title)
		return fallback, nil
	}

	var text string
	operation := func() error {
		var err error
		text, err = s.call(ctx, fmt.Sprintf(suggestPrompt, title, summary))
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fallback, fmt.Errorf("failed to generate suggestion: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("Empty AI response received", "title", title)
		return fallback, nil
	}

	return truncate(text, maxLength), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Suggester) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("openai API %d: %s", resp.StatusCode, string(b))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode openai response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("empty openai response"))
	}

	return cr.Choices[0].Message.Content, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
