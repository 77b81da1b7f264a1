// Package relay delivers complaint events to the external real-time relay.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
)

var (
	_ ports.EventPublisher = (*Publisher)(nil)
	_ ports.EventPublisher = NopPublisher{}
)

// ErrClosed is recorded for events published after Wait has started.
var ErrClosed = errors.New("relay publisher closed")

// Config captures relay endpoint behaviour.
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Registry
}

// Publisher POSTs events to the relay without blocking the caller.
type Publisher struct {
	url        string
	timeout    time.Duration
	retryLimit int
	client     *http.Client
	logger     *slog.Logger
	metrics    *metrics.Registry

	// mu orders wg.Add in Publish against the closing Wait.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher builds a relay publisher. Callers should pass a validated config.
func NewPublisher(cfg Config) (*Publisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("relay url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:        url,
		timeout:    timeout,
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
		logger:     logger.With("component", "relay_publisher"),
		metrics:    cfg.Metrics,
	}, nil
}

// Publish sends event on a detached goroutine. It never blocks on the relay
// and never returns an error; delivery failures are logged. Events published
// once Wait has been called are dropped.
func (p *Publisher) Publish(ctx context.Context, event model.RelayEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode relay event", "type", event.Type, "error", err)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.metrics.RelayPublished(event.Type, ErrClosed)
		p.logger.WarnContext(ctx, "relay event dropped after shutdown",
			"type", event.Type,
			"complaint_id", event.ComplaintID,
		)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer p.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, p.timeout)
		defer cancel()

		err := p.send(sendCtx, body)
		p.metrics.RelayPublished(event.Type, err)
		if err != nil {
			p.logger.WarnContext(sendCtx, "relay delivery failed",
				"type", event.Type,
				"complaint_id", event.ComplaintID,
				"error", err,
			)
		}
	}()
}

// Wait stops accepting new events and blocks until in-flight deliveries
// finish or ctx is done.
func (p *Publisher) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	attempts := p.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = p.post(ctx, body); lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 100 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (p *Publisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// NopPublisher discards events. Used when no relay is configured.
type NopPublisher struct{}

// Publish implements ports.EventPublisher.
func (NopPublisher) Publish(context.Context, model.RelayEvent) {}
