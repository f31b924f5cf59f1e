// Package notify fans stock snapshots out to subscribers: instant
// special-item alerts first, then deduplicated digests.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gagstock-notifier/cache"
	"gagstock-notifier/pkg/tracker"
	"gagstock-notifier/stock"
	"gagstock-notifier/weather"
)

// Subscribers provides the current subscriber set.
type Subscribers interface {
	Subscribers() []*tracker.Subscriber
}

// Sender delivers chat messages.
type Sender interface {
	SendMessage(ctx context.Context, recipientID, text string) error
}

// Weather fetches the current weather report.
type Weather interface {
	Current(ctx context.Context) (*weather.Report, error)
}

// Dispatcher turns feed payloads into outbound messages.
type Dispatcher struct {
	subscribers Subscribers
	sender      Sender
	weather     Weather
	cache       cache.Cache
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a dispatcher. weatherClient may be nil; digests then omit
// the weather block.
func New(subscribers Subscribers, sender Sender, weatherClient Weather, digestCache cache.Cache, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: subscribers,
		sender:      sender,
		weather:     weatherClient,
		cache:       digestCache,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleSnapshot processes one raw feed payload. Alerts go out before
// digests so time-critical restocks are never stuck behind digest
// rendering. Per-subscriber failures are logged and skipped; one dead
// recipient must not stall the fan-out.
func (d *Dispatcher) HandleSnapshot(ctx context.Context, data json.RawMessage) {
	snap, err := stock.Normalize(data)
	if err != nil {
		d.logger.Warn("dropping malformed stock payload", "error", err)
		return
	}

	subs := d.subscribers.Subscribers()
	d.sendAlerts(ctx, snap, subs)
	d.sendDigests(ctx, snap, subs)
}

// sendAlerts delivers special-item alerts to every alerting subscriber.
// Alerts deliberately skip the digest cache: a restock of a watched item
// is always worth a message, even if the snapshot otherwise repeats.
func (d *Dispatcher) sendAlerts(ctx context.Context, snap *stock.Snapshot, subs []*tracker.Subscriber) {
	for _, sub := range subs {
		if !sub.Alerting {
			continue
		}
		matched := MatchItems(snap, sub.AllWatchTerms())
		if len(matched) == 0 {
			continue
		}

		d.logger.Info("sending special item alert",
			"user", sub.ID,
			"matched", len(matched))
		if err := d.sender.SendMessage(ctx, sub.ID, RenderAlert(matched)); err != nil {
			d.logger.Error("alert delivery failed", "user", sub.ID, "error", err)
		}
	}
}

// sendDigests delivers the stock digest to every active subscriber,
// suppressing repeats via the digest cache.
func (d *Dispatcher) sendDigests(ctx context.Context, snap *stock.Snapshot, subs []*tracker.Subscriber) {
	var active []*tracker.Subscriber
	for _, sub := range subs {
		if sub.Active {
			active = append(active, sub)
		}
	}
	if len(active) == 0 {
		return
	}

	var report *weather.Report
	if d.weather != nil {
		var err error
		report, err = d.weather.Current(ctx)
		if err != nil {
			d.logger.Warn("weather unavailable, sending digest without it", "error", err)
		}
	}

	text := RenderDigest(snap, report, d.now())
	if text == "" {
		d.logger.Info("all categories empty, skipping digest")
		return
	}
	digest := hashDigest(text)

	for _, sub := range active {
		last, err := d.cache.Get(ctx, sub.ID)
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			d.logger.Error("digest cache read failed", "user", sub.ID, "error", err)
		}
		if last == digest {
			continue
		}

		// Record before sending so a slow delivery cannot double-send
		// the same digest from the next snapshot.
		if err := d.cache.Set(ctx, sub.ID, digest, 0); err != nil {
			d.logger.Error("digest cache write failed", "user", sub.ID, "error", err)
		}
		d.logger.Info("sending stock digest", "user", sub.ID)
		if err := d.sender.SendMessage(ctx, sub.ID, text); err != nil {
			d.logger.Error("digest delivery failed", "user", sub.ID, "error", err)
		}
	}
}

func hashDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
