package navtest

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

// DefaultVersion is the asset version the fixture reports.
const DefaultVersion = "fixture-1"

// PageFunc builds the page for a request. origin is the fixture's own
// scheme and host, for building absolute locations.
type PageFunc func(r *http.Request, origin string) *page.Page

// RecordedRequest is what the fixture saw of one request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Form   map[string][]string
	Files  []string
}

// Fixture is a protocol server.
type Fixture struct {
	mux     *chi.Mux
	logger  *slog.Logger
	version string

	mu       sync.Mutex
	requests []RecordedRequest
}

// Option configures a Fixture.
type Option func(*Fixture)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fixture) {
		f.logger = l
	}
}

// WithVersion sets the asset version. Requests announcing another version
// receive a 409 asking for a full reload.
func WithVersion(v string) Option {
	return func(f *Fixture) {
		f.version = v
	}
}

// New returns a fixture with the demo routes installed.
func New(opts ...Option) *Fixture {
	f := &Fixture{
		mux:     chi.NewRouter(),
		logger:  slog.Default().With("component", "fixture"),
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.mux.Use(middleware.Recoverer)
	f.mux.Use(f.record)
	f.mux.Use(f.checkVersion)
	f.demoRoutes()
	return f
}

// Start serves the fixture on a local test server.
func (f *Fixture) Start() *httptest.Server {
	return httptest.NewServer(f)
}

// ServeHTTP implements http.Handler.
func (f *Fixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mux.ServeHTTP(w, r)
}

// Page serves fn's page for GET requests to pattern.
func (f *Fixture) Page(pattern string, fn PageFunc) {
	f.mux.Get(pattern, f.pageHandler(fn))
}

// Route serves h for method and pattern.
func (f *Fixture) Route(method, pattern string, h http.HandlerFunc) {
	f.mux.Method(method, pattern, h)
}

// Requests returns every request seen so far.
func (f *Fixture) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request.
func (f *Fixture) LastRequest() (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

func (f *Fixture) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				rec.Form = r.MultipartForm.Value
				for field, files := range r.MultipartForm.File {
					for _, fh := range files {
						rec.Files = append(rec.Files, field+":"+fh.Filename)
					}
				}
			}
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		f.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "protocol", r.Header.Get(transport.HeaderProtocol) != "")
		next.ServeHTTP(w, r)
	})
}

func (f *Fixture) checkVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.Header.Get(transport.HeaderVersion)
		if r.Method == http.MethodGet && v != "" && v != f.version {
			WriteRedirect(w, origin(r)+r.URL.RequestURI())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Fixture) pageHandler(fn PageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := fn(r, origin(r))
		if p.Version == "" {
			p.Version = f.version
		}
		Partial(r, p)
		WritePage(w, r, http.StatusOK, p)
	}
}

func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Partial trims p's properties to those named in the partial reload
// header, if the request carries one.
func Partial(r *http.Request, p *page.Page) {
	only := r.Header.Get(transport.HeaderPartialProperties)
	if only == "" {
		return
	}
	keep := make(page.Properties)
	for _, k := range strings.Split(only, ",") {
		k = strings.TrimSpace(k)
		if v, ok := p.Properties[k]; ok {
			keep[k] = v
		}
	}
	p.Properties = keep
}

var shell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>navigare fixture</title></head>
<body><div id="app" data-page="{{.}}"></div></body></html>
`))

// WritePage answers with p: JSON with the protocol marker for protocol
// requests, an HTML shell embedding the page for anything else.
func WritePage(w http.ResponseWriter, r *http.Request, status int, p *page.Page) {
	body, err := page.Encode(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Vary", transport.HeaderProtocol)
	if r.Header.Get(transport.HeaderProtocol) == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		shell.Execute(w, string(body))
		return
	}
	w.Header().Set(transport.HeaderProtocol, "true")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// WriteRedirect answers with the full page redirect status.
func WriteRedirect(w http.ResponseWriter, href string) {
	w.Header().Set(transport.HeaderLocation, href)
	w.WriteHeader(transport.StatusRedirect)
}

// demoUsers is the fixture's data set.
var demoUsers = []map[string]any{
	{"id": 1, "name": "Ada Lovelace"},
	{"id": 2, "name": "Grace Hopper"},
	{"id": 3, "name": "Barbara Liskov"},
}

func (f *Fixture) demoRoutes() {
	f.Page("/", func(r *http.Request, o string) *page.Page {
		return NewPage(o+"/").
			Fragment("main", "home", page.Properties{"title": "Home"}).
			Build()
	})

	f.Page("/users", func(r *http.Request, o string) *page.Page {
		q := r.URL.Query()
		return NewPage(o+r.URL.RequestURI()).
			Prop("users", demoUsers).
			Prop("page", q.Get("page")).
			Prop("sort", q.Get("sort")).
			Prop("stats", statsOrDeferred(r)).
			Fragment("main", "users.index", page.Properties{"count": len(demoUsers)}).
			Build()
	})

	f.Page("/users/{id}", func(r *http.Request, o string) *page.Page {
		return userPage(o, chi.URLParam(r, "id"))
	})

	f.Page("/users/{id}/edit", func(r *http.Request, o string) *page.Page {
		id := chi.URLParam(r, "id")
		return NewPage(o+"/users/"+id+"/edit").
			Fragment("modal", "users.edit", page.Properties{"id": id}).
			Base(userPage(o, id)).
			Build()
	})

	f.Route(http.MethodPost, "/users", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			in = map[string]any{}
		}
		b := NewPage(origin(r) + "/users").Version(f.version)
		if name, _ := in["name"].(string); strings.TrimSpace(name) == "" {
			b.Errors(map[string]any{"name": "The name field is required."})
		} else {
			b.Prop("created", name)
		}
		WritePage(w, r, http.StatusOK, b.Fragment("main", "users.create", nil).Build())
	})

	f.Route(http.MethodPost, "/upload", func(w http.ResponseWriter, r *http.Request) {
		rec, _ := f.LastRequest()
		WritePage(w, r, http.StatusOK, NewPage(origin(r)+"/upload").
			Version(f.version).
			Prop("method", first(rec.Form["_method"])).
			Prop("files", rec.Files).
			Fragment("main", "upload.done", nil).
			Build())
	})

	f.mux.Get("/external", func(w http.ResponseWriter, r *http.Request) {
		WriteRedirect(w, "https://example.com/other")
	})

	f.mux.Get("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<h1>Server Error</h1>"))
	})

	f.Page("/slow", func(r *http.Request, o string) *page.Page {
		d, err := time.ParseDuration(r.URL.Query().Get("delay"))
		if err != nil {
			d = 5 * time.Second
		}
		select {
		case <-time.After(d):
		case <-r.Context().Done():
		}
		return NewPage(o+"/slow").Fragment("main", "slow", nil).Build()
	})
}

func userPage(o, id string) *page.Page {
	var user map[string]any
	for _, u := range demoUsers {
		if location.Stringify(u["id"]) == id {
			user = u
		}
	}
	return NewPage(o+"/users/"+id).
		Prop("user", user).
		Fragment("main", "users.show", page.Properties{"id": id}).
		Build()
}

func statsOrDeferred(r *http.Request) any {
	for _, k := range strings.Split(r.Header.Get(transport.HeaderPartialProperties), ",") {
		if strings.TrimSpace(k) == "stats" {
			return map[string]any{"total": len(demoUsers)}
		}
	}
	return page.Deferred()
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
