// Package notify delivers alerts and heartbeats to configured webhook
// channels. Alerts are transient: delivery is retried with exponential
// backoff, but a batch that cannot be delivered is dropped, never
// persisted. The next collection cycle re-raises anything still wrong.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/models"
)

const (
	// maxRetries is the number of retry attempts per channel before a
	// payload is dropped.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// requestTimeout is the HTTP request timeout for each delivery attempt.
	requestTimeout = 10 * time.Second
)

// payload is the JSON document POSTed to a webhook channel.
type payload struct {
	InstallationID string            `json:"installation_id"`
	Kind           string            `json:"kind"`
	Timestamp      time.Time         `json:"timestamp"`
	Alerts         []models.Alert    `json:"alerts,omitempty"`
	Heartbeat      *models.Heartbeat `json:"heartbeat,omitempty"`
}

// Notifier fans alert batches and heartbeats out to the enabled channels.
type Notifier struct {
	client         *http.Client
	cfg            config.NotificationConfig
	installationID string
	logger         *zap.Logger
}

// New creates a Notifier for the given notification configuration.
func New(cfg config.NotificationConfig, installationID string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		client:         &http.Client{Timeout: requestTimeout},
		cfg:            cfg,
		installationID: installationID,
		logger:         logger,
	}
}

// NotifyAlerts delivers an alert batch to every enabled channel, after
// filtering by the configured alert levels. Blocks for the duration of
// delivery; callers run it off the collection path.
func (n *Notifier) NotifyAlerts(alerts []models.Alert) {
	if !n.cfg.Enabled || len(alerts) == 0 {
		return
	}

	filtered := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if n.levelEnabled(a.Level) {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == 0 {
		return
	}

	n.deliver(payload{
		InstallationID: n.installationID,
		Kind:           "alerts",
		Timestamp:      time.Now().UTC(),
		Alerts:         filtered,
	})
}

// NotifyHeartbeat delivers a heartbeat to every enabled channel.
func (n *Notifier) NotifyHeartbeat(hb models.Heartbeat) {
	if !n.cfg.Enabled {
		return
	}
	n.deliver(payload{
		InstallationID: n.installationID,
		Kind:           "heartbeat",
		Timestamp:      time.Now().UTC(),
		Heartbeat:      &hb,
	})
}

func (n *Notifier) levelEnabled(level models.AlertLevel) bool {
	for _, l := range n.cfg.AlertLevels {
		if l == string(level) {
			return true
		}
	}
	return false
}

func (n *Notifier) deliver(p payload) {
	data, err := json.Marshal(p)
	if err != nil {
		n.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	for _, ch := range n.cfg.Channels {
		if !ch.Enabled {
			continue
		}
		if ch.Type != "webhook" {
			n.logger.Warn("Skipping channel with unsupported type",
				zap.String("channel", ch.Name),
				zap.String("type", ch.Type))
			continue
		}
		n.sendChannel(ch, data, p.Kind)
	}
}

// sendChannel POSTs one payload to one channel, retrying with
// exponential backoff. A rate-limited response drops the payload
// immediately: retrying into a 429 only makes the next cycle worse.
func (n *Notifier) sendChannel(ch config.ChannelConfig, data []byte, kind string) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * baseRetryDelay
			n.logger.Warn("Retrying notification",
				zap.String("channel", ch.Name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			time.Sleep(delay)
		}

		err := n.post(ch.URL, data)
		if err == nil {
			n.logger.Debug("Notification delivered",
				zap.String("channel", ch.Name),
				zap.String("kind", kind))
			return
		}

		if isRateLimited(err) {
			n.logger.Warn("Channel rate limited, dropping notification",
				zap.String("channel", ch.Name),
				zap.Error(err))
			return
		}

		n.logger.Warn("Notification delivery failed",
			zap.String("channel", ch.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	n.logger.Error("All retries exhausted, dropping notification",
		zap.String("channel", ch.Name),
		zap.String("kind", kind))
}

func (n *Notifier) post(url string, data []byte) error {
	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		url,
		bytes.NewReader(data),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}
	return fmt.Errorf("channel returned %d", resp.StatusCode)
}

// rateLimitError indicates the channel returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}

func isRateLimited(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}
