package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const maxFeedSize = 10 << 20

// ValidatorStore remembers ETag and Last-Modified values per feed URL.
// The fetcher only reads from it.
type ValidatorStore interface {
	Get(ctx context.Context, url string) (Validators, error)
	Set(ctx context.Context, url string, v Validators) error
	Delete(ctx context.Context, url string) error
}

type Fetcher struct {
	client     *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
	validators ValidatorStore
}

// NewFetcher creates a fetcher. validators may be nil to disable conditional requests.
func NewFetcher(client *http.Client, timeout time.Duration, userAgent string, validators ValidatorStore) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	return &Fetcher{
		client:     client,
		parser:     NewParser(),
		userAgent:  userAgent,
		timeout:    timeout,
		validators: validators,
	}
}

// Fetch retrieves and parses one feed, sending any stored validators as
// conditional headers. A 304 response is Ok with no entries. New validators
// are returned in the outcome and never stored here.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]RawEntry, FetchOutcome) {
	return f.fetch(ctx, url, f.validators)
}

// Probe retrieves and parses a feed without conditional request headers,
// so the full document is always evaluated.
func (f *Fetcher) Probe(ctx context.Context, url string) ([]RawEntry, FetchOutcome) {
	return f.fetch(ctx, url, nil)
}

func (f *Fetcher) fetch(ctx context.Context, url string, validators ValidatorStore) ([]RawEntry, FetchOutcome) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Failed(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")

	if validators != nil {
		v, err := validators.Get(ctx, url)
		if err != nil {
			slog.Debug("Failed to load cache validators", "url", url, "error", err)
		}
		if v.ETag != "" {
			req.Header.Set("If-None-Match", v.ETag)
		}
		if v.LastModified != "" {
			req.Header.Set("If-Modified-Since", v.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, failure("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, Ok()
	}

	if resp.StatusCode != http.StatusOK {
		return nil, Failed(fmt.Sprintf("HTTP error: %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, failure("failed to read response body", err)
	}
	if len(data) > maxFeedSize {
		return nil, Failed(fmt.Sprintf("feed larger than %d bytes", maxFeedSize))
	}

	entries, outcome := f.parser.Run(data)
	if !outcome.IsFailed() {
		outcome.Validators = Validators{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
	}

	return entries, outcome
}

func failure(msg string, err error) FetchOutcome {
	if isTimeout(err) {
		return Failed(ReasonTimeout)
	}
	return Failed(fmt.Sprintf("%s: %v", msg, err))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
