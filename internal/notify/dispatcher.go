package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bottlespin/bottlespin-backend/pkg/config"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

// Dispatcher fans workflow events out to interested listeners. Delivery is
// best-effort: the workflow that emitted the event has already committed, so
// failures are logged and dropped, never propagated.
type Dispatcher interface {
	PendingSubmitted(ctx context.Context, event PendingEvent)
	ScanResolved(ctx context.Context, event ResolvedEvent)
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) (int64, error)
}

type redisDispatcher struct {
	pub      publisher
	logg     *logger.Logger
	prefix   string
	attempts uint64
	backoff  time.Duration
}

// NewRedisDispatcher returns a Dispatcher that publishes JSON events over
// Redis pub/sub channels.
func NewRedisDispatcher(pub publisher, cfg config.NotifyConfig, logg *logger.Logger) (Dispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := cfg.PublishAttempts
	if attempts <= 0 {
		attempts = 1
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = "bottlespin"
	}
	return &redisDispatcher{
		pub:      pub,
		logg:     logg,
		prefix:   prefix,
		attempts: uint64(attempts),
		backoff:  200 * time.Millisecond,
	}, nil
}

func (d *redisDispatcher) PendingSubmitted(ctx context.Context, event PendingEvent) {
	event.Event = EventScanPending
	d.publish(ctx, d.prefix+".admin", event)
}

func (d *redisDispatcher) ScanResolved(ctx context.Context, event ResolvedEvent) {
	event.Event = EventScanResolved
	d.publish(ctx, fmt.Sprintf("%s.user.%s", d.prefix, event.UserID), event)
}

func (d *redisDispatcher) publish(ctx context.Context, channel string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(ctx, "marshal notification payload", err)
		return
	}

	backoff := retry.WithMaxRetries(d.attempts-1, retry.NewConstant(d.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := d.pub.Publish(ctx, channel, string(payload)); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		ctx = d.logg.WithField(ctx, "channel", channel)
		d.logg.Error(ctx, "dropping notification after retries", err)
	}
}

type noopDispatcher struct{}

// NewNoopDispatcher returns a Dispatcher that discards all events. Used in
// tests and in environments running without Redis.
func NewNoopDispatcher() Dispatcher {
	return noopDispatcher{}
}

func (noopDispatcher) PendingSubmitted(context.Context, PendingEvent) {}

func (noopDispatcher) ScanResolved(context.Context, ResolvedEvent) {}
