package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gagstock-notifier/cache"
	"gagstock-notifier/pkg/tracker"
	"gagstock-notifier/stock"
	"gagstock-notifier/weather"
)

type fakeSubscribers struct {
	subs []*tracker.Subscriber
}

func (f *fakeSubscribers) Subscribers() []*tracker.Subscriber { return f.subs }

type sentMessage struct {
	to   string
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendMessage(_ context.Context, recipientID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: recipientID, text: text})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeWeather struct {
	report *weather.Report
	err    error
}

func (f *fakeWeather) Current(context.Context) (*weather.Report, error) {
	return f.report, f.err
}

func testDispatcher(subs []*tracker.Subscriber, w Weather) (*Dispatcher, *fakeSender, cache.Cache) {
	sender := &fakeSender{}
	digests := cache.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(&fakeSubscribers{subs: subs}, sender, w, digests, logger)
	d.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return d, sender, digests
}

const gearPayload = `{"gear":{"items":[{"name":"Godly Sprinkler","quantity":3}],"countdown":"05:00"}}`

func TestDigestSentOncePerContent(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))
	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))

	got := sender.messages()
	if len(got) != 1 {
		t.Fatalf("sent %d messages for identical snapshots, want 1", len(got))
	}
	if !strings.Contains(got[0].text, "Godly Sprinkler") {
		t.Errorf("digest text missing item: %s", got[0].text)
	}
	if strings.Contains(got[0].text, "SEEDS") {
		t.Errorf("digest renders empty SEEDS section: %s", got[0].text)
	}
}

func TestUnsubscribedUserReceivesNothing(t *testing.T) {
	ctx := context.Background()
	subs := &fakeSubscribers{subs: []*tracker.Subscriber{{ID: "u1", Active: true}}}
	sender := &fakeSender{}
	digests := cache.NewMemory()
	defer func() { _ = digests.Close() }()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(subs, sender, nil, digests, logger)

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))
	if len(sender.messages()) != 1 {
		t.Fatalf("sent %d messages, want 1 before unsubscribe", len(sender.messages()))
	}

	// Unsubscribe clears the registry entry and the dedup key.
	subs.subs = nil
	if err := digests.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))
	if got := sender.messages(); len(got) != 1 {
		t.Errorf("sent %d messages total, want no delivery after unsubscribe", len(got))
	}
}

func TestDigestResentOnChange(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))
	d.HandleSnapshot(ctx, json.RawMessage(`{"gear":{"items":[{"name":"Trowel","quantity":9}]}}`))

	if got := sender.messages(); len(got) != 2 {
		t.Fatalf("sent %d messages for distinct snapshots, want 2", len(got))
	}
}

func TestEmptySnapshotSendsNothing(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(`{"gear":{"items":[{"name":"Trowel","quantity":0}]}}`))

	if got := sender.messages(); len(got) != 0 {
		t.Fatalf("sent %d messages for all-empty snapshot, want 0", len(got))
	}
}

func TestAlertBypassesDedup(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "vip", Active: true, Alerting: true, VIP: true}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))
	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))

	var alerts, digestsSent int
	for _, msg := range sender.messages() {
		if strings.Contains(msg.text, "VIP SPECIAL ITEMS ALERT") {
			alerts++
		} else {
			digestsSent++
		}
	}
	if alerts != 2 {
		t.Errorf("alerts = %d, want 2 (alert path skips dedup)", alerts)
	}
	if digestsSent != 1 {
		t.Errorf("digests = %d, want 1 (digest path dedups)", digestsSent)
	}
}

func TestNoAlertWithoutAlertingFlag(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))

	for _, msg := range sender.messages() {
		if strings.Contains(msg.text, "VIP SPECIAL ITEMS ALERT") {
			t.Errorf("alert sent to non-alerting subscriber: %s", msg.text)
		}
	}
}

func TestCustomTermAlert(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "vip", Alerting: true, WatchTerms: []string{"rainbow"}}}
	d, sender, digests := testDispatcher(subs, nil)
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(`{"seed":{"items":[{"name":"Rainbow Seed","quantity":1}]}}`))

	got := sender.messages()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1 alert", len(got))
	}
	if !strings.Contains(got[0].text, "Rainbow Seed") {
		t.Errorf("alert missing matched item: %s", got[0].text)
	}
}

func TestWeatherFailureDegrades(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	d, sender, digests := testDispatcher(subs, &fakeWeather{err: context.DeadlineExceeded})
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))

	got := sender.messages()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want digest despite weather failure", len(got))
	}
	if strings.Contains(got[0].text, "Weather") {
		t.Errorf("digest should omit weather section on fetch failure: %s", got[0].text)
	}
}

func TestWeatherIncludedWhenAvailable(t *testing.T) {
	ctx := context.Background()
	subs := []*tracker.Subscriber{{ID: "u1", Active: true}}
	report := &weather.Report{Icon: "🌧️", WeatherType: "Rain", Description: "Heavy rain", CropBonuses: "+50% growth"}
	d, sender, digests := testDispatcher(subs, &fakeWeather{report: report})
	defer func() { _ = digests.Close() }()

	d.HandleSnapshot(ctx, json.RawMessage(gearPayload))

	got := sender.messages()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	if !strings.Contains(got[0].text, "Rain") || !strings.Contains(got[0].text, "+50% growth") {
		t.Errorf("digest missing weather section: %s", got[0].text)
	}
}

func TestMatchItems(t *testing.T) {
	snap, err := stock.Normalize([]byte(`{
		"gear":{"items":[{"name":"Godly Sprinkler","quantity":2},{"name":"Trowel","quantity":5}]},
		"seed":{"items":[{"name":"Beanstalk","quantity":0}]}
	}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{name: "default term substring", terms: []string{"godly sprinkler"}, want: []string{"Godly Sprinkler"}},
		{name: "case insensitive", terms: []string{"GODLY"}, want: []string{"Godly Sprinkler"}},
		{name: "out of stock excluded", terms: []string{"beanstalk"}, want: nil},
		{name: "overlapping terms match once", terms: []string{"godly", "sprinkler"}, want: []string{"Godly Sprinkler"}},
		{name: "no match", terms: []string{"ember lily"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchItems(snap, tt.terms)
			if len(got) != len(tt.want) {
				t.Fatalf("MatchItems() = %+v, want names %v", got, tt.want)
			}
			for i, item := range got {
				if item.Name != tt.want[i] {
					t.Errorf("MatchItems()[%d].Name = %q, want %q", i, item.Name, tt.want[i])
				}
			}
		})
	}
}
