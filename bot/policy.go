package bot

import "gagstock-notifier/pkg/tracker"

// Policy decides which subscribers may use the special-items feature set
// (custom watch terms and instant alerts).
type Policy interface {
	// AllowSpecialItems reports whether the subscriber may use gated
	// commands. sub may be nil for users with no record yet.
	AllowSpecialItems(sub *tracker.Subscriber) bool

	// RequiresApproval reports whether access must be requested from the
	// admin rather than being open to everyone.
	RequiresApproval() bool
}

// VIPPolicy gates special items behind admin-approved VIP status.
type VIPPolicy struct{}

func (VIPPolicy) AllowSpecialItems(sub *tracker.Subscriber) bool {
	return sub != nil && sub.VIP
}

func (VIPPolicy) RequiresApproval() bool { return true }

// OpenPolicy grants the special-items feature set to everyone.
type OpenPolicy struct{}

func (OpenPolicy) AllowSpecialItems(*tracker.Subscriber) bool { return true }

func (OpenPolicy) RequiresApproval() bool { return false }

// PolicyForMode maps a configured tier mode to a Policy. Unknown modes
// get the VIP policy.
func PolicyForMode(mode string) Policy {
	if mode == "open" {
		return OpenPolicy{}
	}
	return VIPPolicy{}
}
