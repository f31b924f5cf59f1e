// Package registry owns the subscriber and access-request state. All
// mutations go through a single Registry so there is exactly one source of
// truth for who is tracking, who holds VIP, and which access codes are
// outstanding. Mutations are flushed to the backing store as they happen;
// a periodic flusher covers anything a failed flush left behind.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gagstock-notifier/pkg/tracker"
)

var (
	// ErrTermExists indicates the subscriber already watches the term.
	ErrTermExists = errors.New("registry: term already tracked")
	// ErrTermNotFound indicates the subscriber does not watch the term.
	ErrTermNotFound = errors.New("registry: term not tracked")
	// ErrRequestNotFound indicates no access request matches the code.
	ErrRequestNotFound = errors.New("registry: access request not found")
)

// Store persists registry state between restarts.
type Store interface {
	SaveSubscribers(ctx context.Context, subs map[string]*tracker.Subscriber) error
	LoadSubscribers(ctx context.Context) (map[string]*tracker.Subscriber, error)
	SaveAccessRequests(ctx context.Context, reqs map[string]*tracker.AccessRequest) error
	LoadAccessRequests(ctx context.Context) (map[string]*tracker.AccessRequest, error)
}

// Registry is the in-memory registry of subscribers and access requests.
type Registry struct {
	store    Store
	logger   *slog.Logger
	subs     map[string]*tracker.Subscriber
	requests map[string]*tracker.AccessRequest
	mu       sync.Mutex
}

// New creates an empty registry backed by store.
func New(store Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		logger:   logger,
		subs:     make(map[string]*tracker.Subscriber),
		requests: make(map[string]*tracker.AccessRequest),
	}
}

// Load replaces the in-memory state with whatever the store holds.
func (r *Registry) Load(ctx context.Context) error {
	subs, err := r.store.LoadSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}
	reqs, err := r.store.LoadAccessRequests(ctx)
	if err != nil {
		return fmt.Errorf("load access requests: %w", err)
	}

	r.mu.Lock()
	r.subs = subs
	r.requests = reqs
	r.mu.Unlock()

	r.logger.Info("registry loaded", "subscribers", len(subs), "access_requests", len(reqs))
	return nil
}

// Flush writes the current state to the store.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	subs := make(map[string]*tracker.Subscriber, len(r.subs))
	for id, sub := range r.subs {
		subs[id] = sub.Clone()
	}
	reqs := make(map[string]*tracker.AccessRequest, len(r.requests))
	for code, req := range r.requests {
		dup := *req
		reqs[code] = &dup
	}
	r.mu.Unlock()

	if err := r.store.SaveSubscribers(ctx, subs); err != nil {
		return fmt.Errorf("save subscribers: %w", err)
	}
	if err := r.store.SaveAccessRequests(ctx, reqs); err != nil {
		return fmt.Errorf("save access requests: %w", err)
	}
	return nil
}

// RunFlusher periodically flushes until ctx is cancelled, then flushes one
// final time so shutdown never loses a mutation.
func (r *Registry) RunFlusher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Error("periodic flush failed", "error", err)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := r.Flush(flushCtx); err != nil {
				r.logger.Error("final flush failed", "error", err)
			}
			cancel()
			return
		}
	}
}

// flush persists state after a mutation. Failures are logged and swallowed
// so a storage hiccup never turns a chat command into an error reply.
func (r *Registry) flush(ctx context.Context) {
	if err := r.Flush(ctx); err != nil {
		r.logger.Error("flush after mutation failed", "error", err)
	}
}

// Get returns a copy of the subscriber record, or nil if none exists.
func (r *Registry) Get(userID string) *tracker.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[userID]
	if !ok {
		return nil
	}
	return sub.Clone()
}

// Track activates digest delivery for the user, creating a record on first
// contact. Returns true when tracking was newly activated.
func (r *Registry) Track(ctx context.Context, userID, name string) bool {
	r.mu.Lock()
	sub, ok := r.subs[userID]
	if !ok {
		sub = &tracker.Subscriber{
			ID:        userID,
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		r.subs[userID] = sub
	}
	if name != "" {
		sub.Name = name
	}
	activated := !sub.Active
	sub.Active = true
	r.mu.Unlock()

	if activated {
		r.logger.Info("tracking started", "user", userID, "name", name)
		r.flush(ctx)
	}
	return activated
}

// StopTracking deactivates digest delivery. The record itself is only
// removed when nothing else hangs off it; VIP status and custom watch
// terms survive a stop so the user keeps them on the next track.
func (r *Registry) StopTracking(ctx context.Context, userID string) bool {
	r.mu.Lock()
	sub, ok := r.subs[userID]
	if !ok || !sub.Active {
		r.mu.Unlock()
		return false
	}
	sub.Active = false
	if !sub.VIP && len(sub.WatchTerms) == 0 {
		delete(r.subs, userID)
	}
	r.mu.Unlock()

	r.logger.Info("tracking stopped", "user", userID)
	r.flush(ctx)
	return true
}

// SetAlerting toggles instant restock alerts for the user.
func (r *Registry) SetAlerting(ctx context.Context, userID string, on bool) bool {
	r.mu.Lock()
	sub, ok := r.subs[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := sub.Alerting != on
	sub.Alerting = on
	r.mu.Unlock()

	if changed {
		r.flush(ctx)
	}
	return changed
}

// AddTerm adds a custom watch term for the user. The term is cleaned
// before storage so matching stays case-insensitive.
func (r *Registry) AddTerm(ctx context.Context, userID, name, term string) error {
	cleaned := tracker.CleanTerm(term)
	if cleaned == "" {
		return ErrTermNotFound
	}

	r.mu.Lock()
	sub, ok := r.subs[userID]
	if !ok {
		sub = &tracker.Subscriber{
			ID:        userID,
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		r.subs[userID] = sub
	}
	for _, existing := range sub.WatchTerms {
		if existing == cleaned {
			r.mu.Unlock()
			return ErrTermExists
		}
	}
	sub.WatchTerms = append(sub.WatchTerms, cleaned)
	r.mu.Unlock()

	r.logger.Info("watch term added", "user", userID, "term", cleaned)
	r.flush(ctx)
	return nil
}

// RemoveTerm removes a custom watch term. Default terms cannot be removed
// because they are never stored per subscriber.
func (r *Registry) RemoveTerm(ctx context.Context, userID, term string) error {
	cleaned := tracker.CleanTerm(term)

	r.mu.Lock()
	sub, ok := r.subs[userID]
	if !ok {
		r.mu.Unlock()
		return ErrTermNotFound
	}
	idx := -1
	for i, existing := range sub.WatchTerms {
		if existing == cleaned {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return ErrTermNotFound
	}
	sub.WatchTerms = append(sub.WatchTerms[:idx], sub.WatchTerms[idx+1:]...)
	removeRecord := !sub.Active && !sub.VIP && len(sub.WatchTerms) == 0
	if removeRecord {
		delete(r.subs, userID)
	}
	r.mu.Unlock()

	r.logger.Info("watch term removed", "user", userID, "term", cleaned)
	r.flush(ctx)
	return nil
}

// CreateAccessRequest records a pending VIP access request and returns the
// code the admin must approve. Repeated requests from the same user reuse
// the outstanding code.
func (r *Registry) CreateAccessRequest(ctx context.Context, userID, firstName string) string {
	r.mu.Lock()
	for code, req := range r.requests {
		if req.UserID == userID {
			r.mu.Unlock()
			return code
		}
	}
	code := accessCode(firstName)
	r.requests[code] = &tracker.AccessRequest{
		Code:      code,
		UserID:    userID,
		Name:      firstName,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	r.logger.Info("access requested", "user", userID, "code", code)
	r.flush(ctx)
	return code
}

// ApproveAccess consumes the access request matching code and grants VIP
// to the requesting user. Returns the approved subscriber.
func (r *Registry) ApproveAccess(ctx context.Context, code string) (*tracker.Subscriber, error) {
	trimmed := strings.TrimSpace(code)

	r.mu.Lock()
	req, ok := r.requests[trimmed]
	if !ok {
		r.mu.Unlock()
		return nil, ErrRequestNotFound
	}
	delete(r.requests, trimmed)

	sub, ok := r.subs[req.UserID]
	if !ok {
		sub = &tracker.Subscriber{
			ID:        req.UserID,
			Name:      req.Name,
			CreatedAt: time.Now().UTC(),
		}
		r.subs[req.UserID] = sub
	}
	sub.VIP = true
	sub.Alerting = true
	sub.ApprovedAt = time.Now().UTC()
	granted := sub.Clone()
	r.mu.Unlock()

	r.logger.Info("access approved", "user", granted.ID, "code", trimmed)
	r.flush(ctx)
	return granted, nil
}

// HasPendingRequest reports whether the user already has an outstanding
// access request.
func (r *Registry) HasPendingRequest(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, req := range r.requests {
		if req.UserID == userID {
			return true
		}
	}
	return false
}

// Subscribers returns copies of every subscriber record.
func (r *Registry) Subscribers() []*tracker.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*tracker.Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub.Clone())
	}
	return out
}

// Counts returns how many subscribers are actively tracking and how many
// hold VIP.
func (r *Registry) Counts() (active, vip int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		if sub.Active {
			active++
		}
		if sub.VIP {
			vip++
		}
	}
	return active, vip
}

// accessCode builds a human-readable approval code from the requester's
// first name plus a random suffix.
func accessCode(firstName string) string {
	name := strings.ToLower(strings.TrimSpace(firstName))
	if name == "" {
		name = "user"
	}
	name = strings.ReplaceAll(name, " ", "-")

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-vip-%d", name, time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%s-vip-%s", name, hex.EncodeToString(buf))
}
