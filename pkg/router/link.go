package router

import (
	"strings"

	"github.com/vango-dev/navigare/pkg/location"
)

// ClickEvent is the part of a pointer or keyboard activation that decides
// whether a link is followed by the router or left to the host.
type ClickEvent struct {
	// Href is the link target as written.
	Href string

	// Target is the anchor's target attribute.
	Target string

	// Button is the pointer button; 0 is the primary button.
	Button int

	// Key is set for keyboard activation.
	Key string

	Alt, Ctrl, Meta, Shift bool

	DefaultPrevented  bool
	IsContentEditable bool
	Download          bool
}

// ShouldIntercept reports whether ev should become a client-side visit
// rather than default host navigation. Modified clicks, secondary
// buttons, keys other than Enter, links opening elsewhere, downloads,
// editable content and events already handled are left alone.
func ShouldIntercept(ev ClickEvent) bool {
	if ev.IsContentEditable || ev.DefaultPrevented || ev.Download {
		return false
	}
	if ev.Alt || ev.Ctrl || ev.Meta || ev.Shift {
		return false
	}
	if ev.Key != "" && ev.Key != "Enter" {
		return false
	}
	if ev.Key == "" && ev.Button != 0 {
		return false
	}
	if t := strings.ToLower(ev.Target); t != "" && t != "_self" {
		return false
	}
	return true
}

// ShouldIntercept is ShouldIntercept plus a check that the link stays on
// the current origin. Same-page hash links are left to the host.
func (r *Router) ShouldIntercept(ev ClickEvent) bool {
	if !ShouldIntercept(ev) {
		return false
	}
	cur := r.history.Current()
	if cur == nil {
		return false
	}
	target, err := location.Parse(ev.Href, cur.Location)
	if err != nil {
		return false
	}
	return location.Classify(cur.Location, target) == location.KindInternal
}
