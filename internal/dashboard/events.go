package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"

	"github.com/avast/retry-go/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Refresher is notified when the API reports new data.
type Refresher interface {
	RefreshAll()
}

// EventListener follows the API event stream and refreshes sessions as
// soon as something changes instead of waiting for the next poll. State
// changes always refresh; ticks are rate limited.
type EventListener struct {
	url    string
	target Refresher
	ticks  *rate.Limiter
	dialer *websocket.Dialer
	log    *logger.Logger
}

// NewEventListener derives the ws:// URL from the API base.
func NewEventListener(apiBase string, target Refresher, tickEvery time.Duration, log *logger.Logger) (*EventListener, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("invalid API base: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported API scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"

	if tickEvery <= 0 {
		tickEvery = 15 * time.Second
	}

	return &EventListener{
		url:    u.String(),
		target: target,
		ticks:  rate.NewLimiter(rate.Every(tickEvery), 1),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
	}, nil
}

func (l *EventListener) URL() string { return l.url }

// Run reconnects with exponential backoff until ctx is done.
func (l *EventListener) Run(ctx context.Context) error {
	attempt := 0
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		attempt++
		err := l.listen(ctx)
		if err != nil && ctx.Err() == nil {
			l.log.Warn("Event stream %s lost (attempt=%d): %v", l.url, attempt, err)
		}
		return err
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *EventListener) listen(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	l.log.Info("Following API events at %s", l.url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		l.handle(msg.Type)
	}
}

func (l *EventListener) handle(kind string) {
	switch kind {
	case models.EventStateChange:
		l.target.RefreshAll()
	case models.EventTick:
		if l.ticks.Allow() {
			l.target.RefreshAll()
		}
	}
}
