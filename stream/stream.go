// Package stream consumes the game server's live event feed. The server
// pushes newline-delimited records in SSE framing, one JSON envelope per
// "data:" line. The reader holds the connection open indefinitely and
// reconnects on any drop until its context is cancelled.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pizzaagent"
)

// Event is one record off the feed. Data stays raw so each consumer decodes
// only the shapes it cares about.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler receives each decoded event in arrival order. The reader calls it
// synchronously, so a slow handler backpressures the feed.
type Handler func(ctx context.Context, ev Event)

type Reader struct {
	url        string
	apiKey     string
	httpClient pizzaagent.HTTPClient
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewReader(cfg pizzaagent.GameConfig, httpClient pizzaagent.HTTPClient, logger *slog.Logger) *Reader {
	return &Reader{
		url:        fmt.Sprintf("%s/events/%d", cfg.BaseURL, cfg.TeamID),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		retryDelay: cfg.StreamRetryDelay,
		logger:     logger,
	}
}

// Run connects to the feed and dispatches events to the handler until ctx is
// cancelled. Every disconnect, clean or not, triggers a reconnect after the
// fixed retry delay. Run only returns the context's error.
func (r *Reader) Run(ctx context.Context, handle Handler) error {
	op := func() error {
		err := r.listenOnce(ctx, handle)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		r.logger.Warn("STREAM: disconnected, will reconnect", "error", err, "retry_delay", r.retryDelay)
		if err == nil {
			err = fmt.Errorf("server closed event stream")
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(r.retryDelay), ctx))
	r.logger.Info("STREAM: reader stopped", "error", err)
	return err
}

func (r *Reader) listenOnce(ctx context.Context, handle Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned %s", resp.Status)
	}
	r.logger.Info("STREAM: connected", "url", r.url)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type == "" {
			// The server greets each connection with a plain string.
			r.logger.Debug("STREAM: skipping non-event payload", "payload", payload)
			continue
		}
		handle(ctx, ev)
	}
	return scanner.Err()
}
