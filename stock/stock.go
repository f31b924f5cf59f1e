// Package stock parses upstream feed payloads into normalized snapshots.
package stock

import (
	"encoding/json"
	"fmt"
)

// CategoryKey identifies one of the six fixed stock categories.
type CategoryKey string

const (
	Gear              CategoryKey = "gear"
	Seed              CategoryKey = "seed"
	Egg               CategoryKey = "egg"
	Cosmetics         CategoryKey = "cosmetics"
	Event             CategoryKey = "event"
	TravelingMerchant CategoryKey = "travelingmerchant"
)

// CategoryKeys lists the categories in render order.
var CategoryKeys = []CategoryKey{Gear, Seed, Egg, Cosmetics, Event, TravelingMerchant}

// Item is a single stock entry. Quantity <= 0 means out of stock: the item
// stays in the snapshot but is excluded from rendering and matching.
type Item struct {
	Name     string `json:"name"`
	Emoji    string `json:"emoji,omitempty"`
	Quantity int64  `json:"quantity"`
}

// InStock reports whether the item should be rendered or matched.
func (i Item) InStock() bool { return i.Quantity > 0 }

// Category holds the items of one category plus its optional restock countdown.
type Category struct {
	Countdown string `json:"countdown,omitempty"`
	Items     []Item `json:"items"`
}

// Snapshot is one normalized stock payload. It replaces the previous
// snapshot wholesale; snapshots are never merged.
type Snapshot struct {
	Categories map[CategoryKey]Category
}

// Category returns the named category, empty if absent.
func (s *Snapshot) Category(key CategoryKey) Category {
	return s.Categories[key]
}

// InStockItems returns every in-stock item across all categories, in
// category render order.
func (s *Snapshot) InStockItems() []Item {
	var items []Item
	for _, key := range CategoryKeys {
		for _, item := range s.Categories[key].Items {
			if item.InStock() {
				items = append(items, item)
			}
		}
	}
	return items
}

// rawCategory mirrors the upstream JSON shape for one category.
type rawCategory struct {
	Items     []Item `json:"items"`
	Countdown string `json:"countdown"`
}

// rawPayload mirrors the upstream data payload. The event category arrives
// under the legacy "honey" key.
type rawPayload struct {
	Gear              *rawCategory `json:"gear"`
	Seed              *rawCategory `json:"seed"`
	Egg               *rawCategory `json:"egg"`
	Cosmetics         *rawCategory `json:"cosmetics"`
	Honey             *rawCategory `json:"honey"`
	TravelingMerchant *rawCategory `json:"travelingmerchant"`
}

// Normalize parses a raw feed data payload into a Snapshot with exactly the
// six named categories, defaulting missing ones to empty item lists. Item
// fields are not validated beyond quantity being a JSON number.
func Normalize(data []byte) (*Snapshot, error) {
	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse stock payload: %w", err)
	}

	snap := &Snapshot{Categories: make(map[CategoryKey]Category, len(CategoryKeys))}
	assign := func(key CategoryKey, rc *rawCategory) {
		if rc == nil {
			snap.Categories[key] = Category{Items: []Item{}}
			return
		}
		items := rc.Items
		if items == nil {
			items = []Item{}
		}
		snap.Categories[key] = Category{Items: items, Countdown: rc.Countdown}
	}

	assign(Gear, raw.Gear)
	assign(Seed, raw.Seed)
	assign(Egg, raw.Egg)
	assign(Cosmetics, raw.Cosmetics)
	assign(Event, raw.Honey)
	assign(TravelingMerchant, raw.TravelingMerchant)

	return snap, nil
}

// FormatQuantity renders a quantity the way the bot displays it:
// x1.5M, x2.3K, or x7.
func FormatQuantity(v int64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("x%.1fM", float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("x%.1fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("x%d", v)
	}
}
