// Package tracker contains the core domain types for the stock tracker bot.
package tracker

import (
	"strings"
	"time"
)

// DefaultWatchTerms are the built-in special-item patterns every alerting
// subscriber is matched against, in addition to their own custom terms.
var DefaultWatchTerms = []string{
	"Godly Sprinkler",
	"Advance Sprinkler",
	"basic Sprinkler",
	"Master Sprinkler",
	"beanstalk",
	"Ember lily",
}

// Subscriber is one chat user's subscription state.
type Subscriber struct {
	CreatedAt  time.Time `json:"created_at"`            // First time we saw this user
	ApprovedAt time.Time `json:"approved_at,omitempty"` // When VIP access was granted
	ID         string    `json:"id"`                    // Opaque chat-platform sender id
	Name       string    `json:"name,omitempty"`        // Display name from the platform profile
	WatchTerms []string  `json:"watch_terms,omitempty"` // Custom terms, insertion order
	Active     bool      `json:"active"`                // Receiving periodic digests
	Alerting   bool      `json:"alerting"`              // Receiving special-item alerts
	VIP        bool      `json:"vip"`                   // Admin-approved tier
}

// Clone returns a deep copy so callers can read state outside the registry lock.
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	c.WatchTerms = append([]string(nil), s.WatchTerms...)
	return &c
}

// AllWatchTerms returns the default terms followed by the subscriber's
// custom terms.
func (s *Subscriber) AllWatchTerms() []string {
	terms := make([]string, 0, len(DefaultWatchTerms)+len(s.WatchTerms))
	terms = append(terms, DefaultWatchTerms...)
	terms = append(terms, s.WatchTerms...)
	return terms
}

// AccessRequest is a pending VIP request, keyed by its access code.
type AccessRequest struct {
	CreatedAt time.Time `json:"created_at"`
	Code      string    `json:"code"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
}

// CleanTerm normalizes a watch term or item name for comparison.
// Matching is substring containment over cleaned strings, never exact match.
func CleanTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TermMatches reports whether the cleaned item name contains the cleaned term.
func TermMatches(itemName, term string) bool {
	return strings.Contains(CleanTerm(itemName), CleanTerm(term))
}
