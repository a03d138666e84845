package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the request body, keyed with
// the shared webhook secret: "sha256=<hex>".
const SignatureHeader = "X-SeaSense-Signature"

// DeliveryFunc is an optional callback for recording delivery outcomes.
type DeliveryFunc func(success bool)

// ErrQueueFull is returned by WebhookPublisher.Publish when every worker is
// busy and the queue is at capacity.
var ErrQueueFull = errors.New("webhook queue is full")

// Webhook pool defaults.
const (
	DefaultWebhookWorkers = 4
	DefaultWebhookQueue   = 256
)

type webhookJob struct {
	alert Alert
	body  []byte
}

// WebhookPublisher POSTs alerts to an HTTP endpoint. A fixed pool of workers
// drains a bounded queue, retrying each delivery, so Publish does not hold
// up the assessment that raised the alert.
type WebhookPublisher struct {
	url        string
	secret     string
	httpClient *http.Client
	delays     []time.Duration // wait before each attempt
	onDelivery DeliveryFunc
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan webhookJob
	wg     sync.WaitGroup
}

// NewWebhookPublisher returns a publisher delivering to endpoint and starts
// its workers. secret may be empty, in which case requests are unsigned.
// workers and queue fall back to the defaults when not positive.
func NewWebhookPublisher(endpoint, secret string, workers, queue int, logger *zap.Logger) (*WebhookPublisher, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook url %q", endpoint)
	}
	if workers <= 0 {
		workers = DefaultWebhookWorkers
	}
	if queue <= 0 {
		queue = DefaultWebhookQueue
	}
	p := &WebhookPublisher{
		url:        endpoint,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Retry with exponential backoff: 1s, 5s.
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second},
		logger: logger,
		queue:  make(chan webhookJob, queue),
	}
	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.queue {
				p.deliver(job.alert, job.body)
			}
		}()
	}
	return p, nil
}

// SetDeliveryRecorder configures the delivery outcome callback. Call it
// before the first Publish.
func (p *WebhookPublisher) SetDeliveryRecorder(fn DeliveryFunc) {
	p.onDelivery = fn
}

// Publish implements Publisher. It returns once the alert is queued, or
// ErrQueueFull without blocking; ctx only bounds encoding.
func (p *WebhookPublisher) Publish(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("webhook publisher is closed")
	}
	select {
	case p.queue <- webhookJob{alert: a, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting alerts and waits for queued deliveries to finish.
func (p *WebhookPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *WebhookPublisher) deliver(a Alert, body []byte) {
	signature := ""
	if p.secret != "" {
		signature = Sign(body, p.secret)
	}

	for attempt, delay := range p.delays {
		if delay > 0 {
			time.Sleep(delay)
		}

		err := p.post(body, signature)
		if p.onDelivery != nil {
			p.onDelivery(err == nil)
		}
		if err == nil {
			return
		}
		p.logger.Warn("webhook: delivery failed",
			zap.String("alert_id", a.ID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	p.logger.Error("webhook: alert dropped after retries", zap.String("alert_id", a.ID.String()), zap.String("imo", a.IMO))
}

func (p *WebhookPublisher) post(body []byte, signature string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the SignatureHeader value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// Fanout publishes every alert to each of its publishers.
type Fanout []Publisher

// Publish implements Publisher. Every publisher is tried; failures are
// joined.
func (f Fanout) Publish(ctx context.Context, a Alert) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
