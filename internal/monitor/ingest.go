package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"OfficeSLAMonitor/internal/auth"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/models"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

const (
	PathOffices     = "/offices"
	PathStateChange = "/ingest/state_change"
	PathTick        = "/ingest/tick"
)

// Sink receives everything the monitor reports to the API.
type Sink interface {
	UpsertOffice(ctx context.Context, req models.UpsertOfficeRequest) error
	StateChange(ctx context.Context, ev models.StateChangeEvent) error
	Tick(ctx context.Context, batch []models.TickSample) error
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt could succeed: transport
// failures, 5xx and 429 are retried, any other 4xx is not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

type HTTPIngestorConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	// Secret enables bearer tokens when set.
	Secret   string
	TokenTTL time.Duration
	Client   *http.Client
}

// HTTPIngestor posts JSON to the SLA API with per-request timeouts,
// exponential retries and a circuit breaker around each logical call.
type HTTPIngestor struct {
	base     string
	client   *http.Client
	timeout  time.Duration
	attempts uint
	backoff  time.Duration

	signMu sync.Mutex
	signer *auth.Signer

	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewHTTPIngestor(cfg HTTPIngestorConfig, m *metrics.Metrics, log *logger.Logger) *HTTPIngestor {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}

	h := &HTTPIngestor{
		base:     cfg.BaseURL,
		client:   client,
		timeout:  cfg.RequestTimeout,
		attempts: uint(max(cfg.MaxRetries, 1)),
		backoff:  cfg.RetryBackoff,
		metrics:  m,
		log:      log,
	}
	if h.timeout <= 0 {
		h.timeout = 5 * time.Second
	}
	if cfg.Secret != "" {
		h.signer = auth.NewSigner(cfg.Secret, cfg.TokenTTL)
	}

	h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sla-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected payload says nothing about API health.
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit %s: %s -> %s", name, from, to)
		},
	})

	return h
}

func (h *HTTPIngestor) UpsertOffice(ctx context.Context, req models.UpsertOfficeRequest) error {
	return h.post(ctx, req.Name, PathOffices, req)
}

func (h *HTTPIngestor) StateChange(ctx context.Context, ev models.StateChangeEvent) error {
	return h.post(ctx, ev.Office, PathStateChange, ev)
}

func (h *HTTPIngestor) Tick(ctx context.Context, batch []models.TickSample) error {
	return h.post(ctx, "*", PathTick, batch)
}

func (h *HTTPIngestor) post(ctx context.Context, office, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s body: %w", path, err)
	}

	_, err = h.breaker.Execute(func() (interface{}, error) {
		attempt := 0
		return nil, retry.New(
			retry.Context(ctx),
			retry.Attempts(h.attempts),
			retry.Delay(h.backoff),
			retry.DelayType(retry.BackOffDelay),
			retry.RetryIf(retryable),
			retry.LastErrorOnly(true),
		).Do(func() error {
			attempt++
			err := h.send(ctx, path, payload)
			if err != nil {
				h.metrics.IngestAttempts.WithLabelValues(path, "error").Inc()
				h.log.Warn("ingest failed office=%s path=%s attempt=%d: %v", office, path, attempt, err)
				return err
			}
			h.metrics.IngestAttempts.WithLabelValues(path, "ok").Inc()
			return nil
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		h.metrics.IngestAttempts.WithLabelValues(path, "circuit_open").Inc()
		return fmt.Errorf("%s skipped: %w", path, err)
	}
	return err
}

func (h *HTTPIngestor) send(ctx context.Context, path string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if h.signer != nil {
		h.signMu.Lock()
		token, err := h.signer.Token()
		h.signMu.Unlock()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Publisher is the MQTT side of ingestion.
type Publisher interface {
	PublishStateChange(ev models.StateChangeEvent) error
	PublishTick(batch []models.TickSample) error
}

// MQTTIngestor publishes state changes and ticks to the broker. Office
// registration has no topic and still goes over HTTP.
type MQTTIngestor struct {
	http    *HTTPIngestor
	pub     Publisher
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewMQTTIngestor(web *HTTPIngestor, pub Publisher, m *metrics.Metrics, log *logger.Logger) *MQTTIngestor {
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &MQTTIngestor{http: web, pub: pub, metrics: m, log: log}
}

func (q *MQTTIngestor) UpsertOffice(ctx context.Context, req models.UpsertOfficeRequest) error {
	return q.http.UpsertOffice(ctx, req)
}

func (q *MQTTIngestor) StateChange(_ context.Context, ev models.StateChangeEvent) error {
	return q.observe(PathStateChange, ev.Office, q.pub.PublishStateChange(ev))
}

func (q *MQTTIngestor) Tick(_ context.Context, batch []models.TickSample) error {
	return q.observe(PathTick, "*", q.pub.PublishTick(batch))
}

func (q *MQTTIngestor) observe(path, office string, err error) error {
	if err != nil {
		q.metrics.IngestAttempts.WithLabelValues(path, "error").Inc()
		q.log.Warn("publish failed office=%s path=%s: %v", office, path, err)
		return err
	}
	q.metrics.IngestAttempts.WithLabelValues(path, "ok").Inc()
	return nil
}
