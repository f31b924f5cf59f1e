package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gagstock-notifier/pkg/tracker"
)

func localStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(nil, "", t.TempDir(), logger)
}

func TestLoadSubscribersEmptyOnFirstRun(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)

	subs, err := s.LoadSubscribers(ctx)
	if err != nil {
		t.Fatalf("LoadSubscribers() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("LoadSubscribers() = %v, want empty map", subs)
	}
}

func TestSubscriberRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)

	want := map[string]*tracker.Subscriber{
		"u1": {
			ID:         "u1",
			Name:       "Alice Smith",
			Active:     true,
			Alerting:   true,
			VIP:        true,
			WatchTerms: []string{"rainbow seed"},
			CreatedAt:  time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		"u2": {ID: "u2", Active: true},
	}

	if err := s.SaveSubscribers(ctx, want); err != nil {
		t.Fatalf("SaveSubscribers() error = %v", err)
	}
	got, err := s.LoadSubscribers(ctx)
	if err != nil {
		t.Fatalf("LoadSubscribers() error = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("loaded %d subscribers, want %d", len(got), len(want))
	}
	u1 := got["u1"]
	if u1 == nil || u1.Name != "Alice Smith" || !u1.VIP || !u1.Alerting {
		t.Errorf("u1 = %+v, want VIP Alice", u1)
	}
	if len(u1.WatchTerms) != 1 || u1.WatchTerms[0] != "rainbow seed" {
		t.Errorf("u1 terms = %v, want [rainbow seed]", u1.WatchTerms)
	}
	if !u1.CreatedAt.Equal(want["u1"].CreatedAt) {
		t.Errorf("u1 CreatedAt = %v, want %v", u1.CreatedAt, want["u1"].CreatedAt)
	}
}

func TestAccessRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)

	want := map[string]*tracker.AccessRequest{
		"alice-vip-abc123": {
			Code:      "alice-vip-abc123",
			UserID:    "u1",
			Name:      "Alice",
			CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	if err := s.SaveAccessRequests(ctx, want); err != nil {
		t.Fatalf("SaveAccessRequests() error = %v", err)
	}
	got, err := s.LoadAccessRequests(ctx)
	if err != nil {
		t.Fatalf("LoadAccessRequests() error = %v", err)
	}
	req := got["alice-vip-abc123"]
	if req == nil || req.UserID != "u1" || req.Name != "Alice" {
		t.Errorf("request = %+v, want u1/Alice", req)
	}
}

func TestTablesListsSavedDocs(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)

	if err := s.SaveSubscribers(ctx, map[string]*tracker.Subscriber{}); err != nil {
		t.Fatalf("SaveSubscribers() error = %v", err)
	}
	if err := s.SaveAccessRequests(ctx, map[string]*tracker.AccessRequest{}); err != nil {
		t.Fatalf("SaveAccessRequests() error = %v", err)
	}

	tables, err := s.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	found := map[string]bool{}
	for _, name := range tables {
		found[name] = true
	}
	if !found["subscribers"] || !found["access-requests"] {
		t.Errorf("Tables() = %v, want subscribers and access-requests", tables)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrNotExist) {
		t.Error("IsNotFound(ErrNotExist) = false")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
	if IsNotFound(context.Canceled) {
		t.Error("IsNotFound(context.Canceled) = true")
	}
}
