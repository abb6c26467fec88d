// Package history keeps the page stack of a Navigare router in step with
// the host's session history.
//
// The Coordinator never touches a browser directly. Everything it needs
// from the host (history entries, scroll positions, hard reloads and full
// page loads) goes through a Port, and the redirect marker that survives a
// full page load goes through a Storage. MemoryPort and MemoryStorage are
// deterministic in-process implementations; BoltStorage persists to a
// bbolt file so a headless client can resume after a restart.
//
// Each history entry's state is the JSON-encoded page, including its
// remembered state and last captured scroll regions, so a back/forward
// traversal can restore both.
package history
