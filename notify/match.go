package notify

import (
	"gagstock-notifier/pkg/tracker"
	"gagstock-notifier/stock"
)

// MatchItems returns the in-stock items whose names contain any of the
// given watch terms, in category render order.
func MatchItems(snap *stock.Snapshot, terms []string) []stock.Item {
	var matched []stock.Item
	for _, item := range snap.InStockItems() {
		for _, term := range terms {
			if tracker.TermMatches(item.Name, term) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}
