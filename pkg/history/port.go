package history

import "github.com/vango-dev/navigare/pkg/page"

// NavigationType is how the current document was reached.
type NavigationType string

const (
	NavigationNavigate    NavigationType = "navigate"
	NavigationReload      NavigationType = "reload"
	NavigationBackForward NavigationType = "back_forward"
)

// Port is the host's session history, scroll and location surface.
type Port interface {
	// PushEntry adds an entry after the current one, discarding any
	// forward entries.
	PushEntry(state []byte, url string)

	// ReplaceEntry overwrites the current entry.
	ReplaceEntry(state []byte, url string)

	// ReadEntry returns the current entry's state, or nil.
	ReadEntry() []byte

	// CurrentURL returns the address of the current entry.
	CurrentURL() string

	// Back moves one entry back. The host later reports the move through
	// the OnPopState handler; it does nothing when there is no earlier
	// entry.
	Back()

	// NavigationType reports how the current document was loaded.
	NavigationType() NavigationType

	// ScrollRegions returns the document scroll position followed by every
	// marked scroll region.
	ScrollRegions() []page.ScrollRegion

	// RestoreScroll applies positions in ScrollRegions order.
	RestoreScroll(regions []page.ScrollRegion)

	// ResetScroll scrolls everything to the origin, then to the element
	// identified by hash if there is one.
	ResetScroll(hash string)

	// Reload performs a hard reload of the current document.
	Reload()

	// Assign performs a full page load of url.
	Assign(url string)

	// OnPopState installs the handler for history traversal. The state is
	// the target entry's state, or nil if it has none.
	OnPopState(fn func(state []byte))
}
