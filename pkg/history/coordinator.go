package history

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/page"
)

// Mode is how a page was committed to history.
type Mode int

const (
	ModeReplace Mode = iota
	ModePush
	ModePop
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePop:
		return "pop"
	default:
		return "replace"
	}
}

// Origin is how the first page of a session was reached.
type Origin int

const (
	OriginLoad Origin = iota
	OriginBackForward
	OriginRedirect
)

func (o Origin) String() string {
	switch o {
	case OriginBackForward:
		return "back_forward"
	case OriginRedirect:
		return "redirect"
	default:
		return "load"
	}
}

// CommitOptions control SetPage.
type CommitOptions struct {
	Replace        bool
	PreserveScroll bool
	PreserveURL    bool
}

// Coordinator owns the page stack and the current index. It is safe for
// concurrent use; Port calls that can re-enter the coordinator (Back) are
// made without holding its lock.
type Coordinator struct {
	mu      sync.Mutex
	port    Port
	storage Storage
	logger  *slog.Logger

	pages      []*page.Page
	index      int
	pendingPop *page.Page
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithStorage sets the session storage. The default is a MemoryStorage.
func WithStorage(s Storage) Option {
	return func(c *Coordinator) {
		c.storage = s
	}
}

// NewCoordinator returns a coordinator over port with an empty stack.
func NewCoordinator(port Port, opts ...Option) *Coordinator {
	c := &Coordinator{
		port:    port,
		storage: NewMemoryStorage(),
		logger:  slog.Default().With("component", "history"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Port returns the host port.
func (c *Coordinator) Port() Port {
	return c.port
}

// Boot commits the first page of the session. A back/forward load restores
// the page stored in the current entry; a load following a full page
// redirect resumes from the redirect marker; anything else adopts the
// current address's hash into initial.
func (c *Coordinator) Boot(initial *page.Page) (*page.Page, Origin, error) {
	if c.port.NavigationType() == NavigationBackForward {
		if restored, err := page.Decode(c.port.ReadEntry()); err == nil {
			if err := restored.Normalize(initial.Location); err != nil {
				return nil, OriginBackForward, err
			}
			c.port.RestoreScroll(restored.ScrollRegions)
			if _, err := c.SetPage(restored, CommitOptions{Replace: true, PreserveScroll: true}); err != nil {
				return nil, OriginBackForward, err
			}
			c.logger.Info("restored page from history", "href", restored.Location.Href)
			return c.Current(), OriginBackForward, nil
		}
	}

	marker, ok, err := readMarker(c.storage)
	if err != nil {
		c.logger.Warn("redirect marker unreadable", "error", err)
	}
	if ok {
		if err := c.storage.Delete(RedirectKey); err != nil {
			c.logger.Warn("redirect marker not cleared", "error", err)
		}
		if prev, err := page.Decode(c.port.ReadEntry()); err == nil {
			initial.RememberedState = prev.RememberedState
			initial.ScrollRegions = prev.ScrollRegions
		}
		if marker.PreserveScroll {
			c.port.RestoreScroll(initial.ScrollRegions)
		}
		if _, err := c.SetPage(initial, CommitOptions{Replace: true, PreserveScroll: marker.PreserveScroll}); err != nil {
			return nil, OriginRedirect, err
		}
		c.logger.Info("resumed after redirect", "href", initial.Location.Href, "preserve_scroll", marker.PreserveScroll)
		return c.Current(), OriginRedirect, nil
	}

	if cur, err := location.Parse(c.port.CurrentURL(), location.Location{}); err == nil && cur.Hash != "" && initial.Location.SamePage(cur) {
		initial.Location = initial.Location.WithHash(cur.Hash)
	}
	if _, err := c.SetPage(initial, CommitOptions{Replace: true}); err != nil {
		return nil, OriginLoad, err
	}
	return c.Current(), OriginLoad, nil
}

// SetPage commits p and records the resulting scroll positions on it.
//
// The current entry is replaced for the first page, on request, when the
// URL is preserved, or when p's address equals the current one. A page
// whose location equals the previous entry's pops back onto that entry.
// Anything else is pushed, dropping forward entries.
func (c *Coordinator) SetPage(p *page.Page, opts CommitOptions) (Mode, error) {
	if !opts.PreserveScroll {
		c.port.ResetScroll(p.Location.Hash)
	}
	p.ScrollRegions = c.port.ScrollRegions()

	c.mu.Lock()
	url := p.Location.Href
	if opts.PreserveURL && len(c.pages) > 0 {
		url = c.port.CurrentURL()
	}

	mode := ModePush
	switch {
	case len(c.pages) == 0, opts.Replace, opts.PreserveURL, url == c.port.CurrentURL():
		mode = ModeReplace
	case c.index > 0 && c.pages[c.index-1].Location.Equal(p.Location):
		mode = ModePop
	}

	state, err := page.Encode(p)
	if err != nil {
		c.mu.Unlock()
		return mode, err
	}

	switch mode {
	case ModeReplace:
		if len(c.pages) == 0 {
			c.pages = append(c.pages, p)
			c.index = 0
		} else {
			c.pages[c.index] = p
		}
		c.port.ReplaceEntry(state, url)
	case ModePush:
		c.pages = append(c.pages[:c.index+1], p)
		c.index++
		c.port.PushEntry(state, url)
	case ModePop:
		c.pendingPop = p
	}
	c.mu.Unlock()

	c.logger.Debug("history "+mode.String(), "href", p.Location.Href)
	if mode == ModePop {
		c.port.Back()
	}
	return mode, nil
}

// PopState applies a history traversal reported by the host and returns
// the page now current. Unparseable state, or state whose visit is not on
// the stack, forces a hard reload and returns an N020 error.
func (c *Coordinator) PopState(state []byte) (*page.Page, error) {
	c.mu.Lock()

	if p := c.pendingPop; p != nil {
		c.pendingPop = nil
		if c.index > 0 {
			c.index--
		}
		c.pages[c.index] = p
		c.markObsolete()
		raw, err := page.Encode(p)
		if err == nil {
			c.port.ReplaceEntry(raw, p.Location.Href)
		}
		c.mu.Unlock()
		return p.Clone(), err
	}

	restored, err := page.Decode(state)
	if err != nil {
		c.mu.Unlock()
		return nil, c.hardReload(errors.New("N020").WithDetail("entry state").Wrap(err))
	}

	i := c.find(restored.Visit)
	if i < 0 {
		c.mu.Unlock()
		return nil, c.hardReload(errors.New("N020").WithDetail("visit not on the page stack"))
	}

	c.index = i
	c.markObsolete()
	cur := c.pages[i]
	cur.ScrollRegions = restored.ScrollRegions
	cur.RememberedState = restored.RememberedState
	c.mu.Unlock()

	c.port.RestoreScroll(restored.ScrollRegions)
	c.logger.Debug("history traversal", "href", cur.Location.Href, "index", i)
	return c.Current(), nil
}

func (c *Coordinator) hardReload(err error) error {
	c.logger.Info("hard reload", "reason", err)
	c.port.Reload()
	return err
}

func (c *Coordinator) find(v *page.Visit) int {
	if v == nil {
		return -1
	}
	for i, p := range c.pages {
		if p.Visit != nil && p.Visit.ID == v.ID {
			return i
		}
	}
	return -1
}

// markObsolete flags every entry after the current index.
func (c *Coordinator) markObsolete() {
	for i, p := range c.pages {
		p.Obsolete = i > c.index
	}
}

// Popping reports whether a pop commit is waiting for its traversal to be
// reported through PopState.
func (c *Coordinator) Popping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingPop != nil
}

// HasPrevious reports whether there is an earlier stack entry.
func (c *Coordinator) HasPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index > 0
}

// Back delegates to the host's back navigation.
func (c *Coordinator) Back() {
	c.port.Back()
}

// SaveScroll records the host's current scroll positions into the current
// entry.
func (c *Coordinator) SaveScroll() error {
	regions := c.port.ScrollRegions()
	return c.Update(func(p *page.Page) {
		p.ScrollRegions = regions
	})
}

// Update mutates the current page in place and rewrites its history entry.
func (c *Coordinator) Update(fn func(*page.Page)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pages) == 0 {
		return nil
	}
	p := c.pages[c.index]
	fn(p)
	state, err := page.Encode(p)
	if err != nil {
		return err
	}
	c.port.ReplaceEntry(state, c.port.CurrentURL())
	return nil
}

// Current returns a copy of the current page, or nil before Boot.
func (c *Coordinator) Current() *page.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pages) == 0 {
		return nil
	}
	return c.pages[c.index].Clone()
}

// Previous returns a copy of the entry before the current one, or nil.
func (c *Coordinator) Previous() *page.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == 0 || len(c.pages) == 0 {
		return nil
	}
	return c.pages[c.index-1].Clone()
}

// Pages returns copies of every stack entry, including obsolete ones.
func (c *Coordinator) Pages() []*page.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*page.Page, len(c.pages))
	for i, p := range c.pages {
		out[i] = p.Clone()
	}
	return out
}

// Index returns the current stack index.
func (c *Coordinator) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// SetRedirectMarker persists m for the next document.
func (c *Coordinator) SetRedirectMarker(m RedirectMarker) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.storage.Set(RedirectKey, raw)
}

// RedirectMarker returns the persisted marker, if any.
func (c *Coordinator) RedirectMarker() (RedirectMarker, bool, error) {
	return readMarker(c.storage)
}

// ClearRedirectMarker removes the persisted marker.
func (c *Coordinator) ClearRedirectMarker() error {
	return c.storage.Delete(RedirectKey)
}
