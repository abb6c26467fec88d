package history

import (
	"sync"

	"github.com/vango-dev/navigare/pkg/page"
)

type memEntry struct {
	state []byte
	url   string
}

// MemoryPort is an in-process Port. It models one document with a linear
// entry list and delivers popstate synchronously from Back.
type MemoryPort struct {
	mu       sync.Mutex
	entries  []memEntry
	index    int
	navType  NavigationType
	scroll   []page.ScrollRegion
	onPop    func([]byte)
	reloads  int
	assigned []string
	hashes   []string
}

// NewMemoryPort returns a port whose current document is url.
func NewMemoryPort(url string) *MemoryPort {
	return &MemoryPort{
		entries: []memEntry{{url: url}},
		navType: NavigationNavigate,
		scroll:  []page.ScrollRegion{{}},
	}
}

// SetNavigationType sets what NavigationType reports.
func (m *MemoryPort) SetNavigationType(t NavigationType) {
	m.mu.Lock()
	m.navType = t
	m.mu.Unlock()
}

// SetEntryState overwrites the current entry's state without a URL change,
// simulating a document restored by the host.
func (m *MemoryPort) SetEntryState(state []byte) {
	m.mu.Lock()
	m.entries[m.index].state = state
	m.mu.Unlock()
}

// ScrollTo simulates the user scrolling. regions[0] is the document.
func (m *MemoryPort) ScrollTo(regions ...page.ScrollRegion) {
	m.mu.Lock()
	m.scroll = append([]page.ScrollRegion(nil), regions...)
	m.mu.Unlock()
}

func (m *MemoryPort) PushEntry(state []byte, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], memEntry{state: state, url: url})
	m.index++
}

func (m *MemoryPort) ReplaceEntry(state []byte, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = memEntry{state: state, url: url}
}

func (m *MemoryPort) ReadEntry() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].state
}

func (m *MemoryPort) CurrentURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].url
}

func (m *MemoryPort) Back() {
	m.mu.Lock()
	if m.index == 0 {
		m.mu.Unlock()
		return
	}
	m.index--
	state := m.entries[m.index].state
	fn := m.onPop
	m.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

func (m *MemoryPort) NavigationType() NavigationType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navType
}

func (m *MemoryPort) ScrollRegions() []page.ScrollRegion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]page.ScrollRegion(nil), m.scroll...)
}

func (m *MemoryPort) RestoreScroll(regions []page.ScrollRegion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.scroll {
		if i < len(regions) {
			m.scroll[i] = regions[i]
		}
	}
}

func (m *MemoryPort) ResetScroll(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.scroll {
		m.scroll[i] = page.ScrollRegion{}
	}
	if hash != "" {
		m.hashes = append(m.hashes, hash)
	}
}

func (m *MemoryPort) Reload() {
	m.mu.Lock()
	m.reloads++
	m.mu.Unlock()
}

func (m *MemoryPort) Assign(url string) {
	m.mu.Lock()
	m.assigned = append(m.assigned, url)
	m.mu.Unlock()
}

func (m *MemoryPort) OnPopState(fn func(state []byte)) {
	m.mu.Lock()
	m.onPop = fn
	m.mu.Unlock()
}

// Len returns the number of entries.
func (m *MemoryPort) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the current entry index.
func (m *MemoryPort) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Reloads returns how many hard reloads were requested.
func (m *MemoryPort) Reloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}

// Assigned returns every URL passed to Assign.
func (m *MemoryPort) Assigned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.assigned...)
}

// ScrolledToHashes returns every hash target ResetScroll scrolled to.
func (m *MemoryPort) ScrolledToHashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hashes...)
}

var _ Port = (*MemoryPort)(nil)
