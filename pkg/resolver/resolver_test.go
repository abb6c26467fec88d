package resolver

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/navtest"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/router"
	"github.com/vango-dev/navigare/pkg/transport"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveCachesByID(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context, comp page.Component) (string, error) {
		calls.Add(1)
		return "module:" + comp.Path, nil
	}, quiet())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m, err := c.Resolve(ctx, page.Component{ID: "users", Path: "./Users"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if m != "module:./Users" {
			t.Errorf("Resolve() = %q, want module:./Users", m)
		}
	}
	// Same id, different path: the cached module wins.
	m, _ := c.Resolve(ctx, page.Component{ID: "users", Path: "./Other"})
	if m != "module:./Users" {
		t.Errorf("Resolve() = %q after path change, want cached module", m)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestResolveSharesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(ctx context.Context, comp page.Component) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}, quiet())

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Resolve(context.Background(), page.Component{ID: "dash"})
		}(i)
	}
	close(release)
	wg.Wait()

	for i, got := range results {
		if got != 7 {
			t.Errorf("results[%d] = %d, want 7", i, got)
		}
	}
	// Goroutines arriving after the first call completed hit the cache, so
	// the function runs exactly once either way.
	if got := calls.Load(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
}

func TestResolveFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context, comp page.Component) (string, error) {
		if calls.Add(1) == 1 {
			return "", stderrors.New("chunk load failed")
		}
		return "ok", nil
	}, quiet())

	_, err := c.Resolve(context.Background(), page.Component{ID: "lazy"})
	if !errors.HasCode(err, "N014") {
		t.Fatalf("Resolve() error = %v, want N014", err)
	}
	if _, ok := c.Lookup("lazy"); ok {
		t.Error("failed resolution was cached")
	}
	m, err := c.Resolve(context.Background(), page.Component{ID: "lazy"})
	if err != nil || m != "ok" {
		t.Errorf("Resolve() retry = %q, %v; want ok, nil", m, err)
	}
}

func TestRouterLoadsComponentsBeforeCommit(t *testing.T) {
	var seen []string
	c := New(func(ctx context.Context, comp page.Component) (bool, error) {
		seen = append(seen, comp.ID)
		if comp.ID == "broken" {
			return false, stderrors.New("missing module")
		}
		return true, nil
	}, quiet())

	tr := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		component := "users"
		if req.URL == "https://app.test/broken" {
			component = "broken"
		}
		body, _ := page.Encode(navtest.NewPage(req.URL).Fragment("main", component, nil).Build())
		return &transport.Response{
			Status: http.StatusOK,
			Header: http.Header{transport.HeaderProtocol: {"true"}},
			Body:   body,
		}, nil
	})
	initial := navtest.NewPage("https://app.test/").Fragment("main", "home", nil).Build()
	r, err := router.New(initial,
		router.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		router.WithPort(history.NewMemoryPort("https://app.test/")),
		router.WithTransport(tr),
		router.WithComponents(c),
	)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	defer r.Wait()

	var exception error
	r.On(events.Exception, func(e *events.Event) bool {
		exception = e.Err
		return false
	})

	ctx := context.Background()
	r.Visit(ctx, "/users")
	r.Visit(ctx, "/users?page=2")
	if _, ok := c.Lookup("users"); !ok {
		t.Error("users component not cached")
	}
	if len(seen) != 1 {
		t.Errorf("resolver calls = %v, want one call for users", seen)
	}

	r.Visit(ctx, "/broken")
	if !errors.HasCode(exception, "N014") {
		t.Errorf("exception = %v, want N014", exception)
	}
	if got := r.Page().Location.Pathname; got != "/users" {
		t.Errorf("current page = %s, want /users (broken page not committed)", got)
	}
}
