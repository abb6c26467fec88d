package page

import "sort"

// Deferred property markers. A server sends {"__deferred": true} in place of
// a value it wants the client to fetch with a follow-up partial reload.
const (
	DeferredKey  = "__deferred"
	RequestedKey = "__requested"
)

// Deferred returns a fresh deferred marker.
func Deferred() map[string]any {
	return map[string]any{DeferredKey: true}
}

// IsDeferred reports whether v is a deferred marker, requested or not.
func IsDeferred(v any) bool {
	m, ok := asMap(v)
	if !ok {
		return false
	}
	flag, _ := m[DeferredKey].(bool)
	return flag
}

// IsPending reports whether v is a deferred marker that has not been
// requested yet.
func IsPending(v any) bool {
	if !IsDeferred(v) {
		return false
	}
	m, _ := asMap(v)
	requested, _ := m[RequestedKey].(bool)
	return !requested
}

// MarkRequested flags a deferred marker as requested in place.
func MarkRequested(v any) {
	if m, ok := asMap(v); ok && IsDeferred(m) {
		m[RequestedKey] = true
	}
}

// PendingDeferred returns the flattened names of properties holding
// unrequested deferred markers, sorted.
func PendingDeferred(props Properties) []string {
	var names []string
	for k, v := range props {
		if IsPending(v) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
