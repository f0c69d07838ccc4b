package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/logger"
)

const defaultPoolSize = 10

// Config holds webhook notifier configuration
type Config struct {
	Clients []Client
	// MaxRetries is the number of retries after the first failed attempt
	MaxRetries int
	// Timeout bounds each HTTP attempt
	Timeout time.Duration
	// PoolSize bounds concurrent deliveries
	PoolSize int
}

// Notifier delivers signed market events to registered webhook clients.
// It implements messaging.Publisher: deliveries are dispatched to a worker
// pool and retried with exponential backoff, so publishing never blocks
// the calling operation.
type Notifier struct {
	clients    []Client
	pool       pond.Pool
	httpClient *http.Client
	maxRetries uint64
}

// NewNotifier creates a webhook notifier with a bounded worker pool
func NewNotifier(cfg Config) *Notifier {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		clients:    cfg.Clients,
		pool:       pond.NewPool(poolSize),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: uint64(max(cfg.MaxRetries, 0)),
	}
}

// PublishEvent queues a delivery of the event to every registered client
func (n *Notifier) PublishEvent(_ context.Context, event *domain.MarketEvent) error {
	for _, client := range n.clients {
		// Deliveries outlive the request that triggered them
		n.pool.Submit(func() {
			result := n.deliver(context.Background(), client, event)
			if result.Success {
				logger.Debug("webhook delivered",
					zap.String("client", client.Name),
					zap.String("event_id", event.EventID),
					zap.Int("status", result.StatusCode),
					zap.Int("attempts", result.Attempts))
				return
			}
			logger.Warn("webhook delivery failed",
				zap.String("client", client.Name),
				zap.String("event_id", event.EventID),
				zap.Int("status", result.StatusCode),
				zap.Int("attempts", result.Attempts),
				zap.String("error", result.Error))
		})
	}
	return nil
}

// Close waits for in-flight deliveries to finish
func (n *Notifier) Close() {
	n.pool.StopAndWait()
}

func (n *Notifier) deliver(ctx context.Context, client Client, event *domain.MarketEvent) DeliveryResult {
	payload, signature, timestamp, err := GenerateSignedPayload(client.Secret, event)
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}

	// deliveryID identifies this fan-out target so receivers can
	// distinguish redeliveries of the same event
	deliveryID := uuid.NewString()

	result := DeliveryResult{}
	attempt := func() error {
		result.Attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.URL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Webhook-Event-ID", event.EventID)
		req.Header.Set("X-Webhook-Event-Type", string(event.EventType))
		req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", timestamp))
		req.Header.Set("X-Webhook-Delivery", deliveryID)
		req.Header.Set("User-Agent", "marketd-webhook/1.0")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
		}()

		result.StatusCode = resp.StatusCode
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// The receiver rejected the payload; retrying will not help
			return backoff.Permanent(fmt.Errorf("webhook rejected with status %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second

	err = backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, n.maxRetries), ctx))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	return result
}
