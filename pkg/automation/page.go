package automation

import "context"

// ControlState is what the page shows for the current entity's visibility toggle
type ControlState int

const (
	// Absent means the toggle is not rendered
	Absent ControlState = iota
	// Disabled means the toggle is hidden behind the follow menu
	Disabled
	// Enabled means the toggle can be clicked
	Enabled
)

func (c ControlState) String() string {
	switch c {
	case Absent:
		return "absent"
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// Page is the rendered following page as the machine sees it. Observations
// must not block on the page changing; the machine does the waiting.
type Page interface {
	// LeadingEntityName returns the name of the first account in the list
	LeadingEntityName(ctx context.Context) (string, bool)
	ToggleState(ctx context.Context) ControlState
	// MenuPresent reports whether the follow menu button is rendered
	MenuPresent(ctx context.Context) bool
	// OpenMenu clicks the follow menu button and reports whether it was there
	OpenMenu(ctx context.Context) bool
	ClickToggle(ctx context.Context) error
}

// Counter is implemented by pages that can read the follow count
type Counter interface {
	FollowCount(ctx context.Context) (int, bool)
}
