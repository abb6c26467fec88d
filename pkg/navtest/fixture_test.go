package navtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

func protocolRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(transport.HeaderProtocol, "true")
	return req
}

func TestFixtureServesProtocolPage(t *testing.T) {
	f := New()
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, protocolRequest("GET", "/users?page=2"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(transport.HeaderProtocol) != "true" {
		t.Error("protocol marker header missing")
	}
	p, err := page.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if p.Properties["page"] != "2" {
		t.Errorf("page property = %v, want 2", p.Properties["page"])
	}
	if !page.IsPending(p.Properties["stats"]) {
		t.Errorf("stats = %v, want deferred marker", p.Properties["stats"])
	}
	if p.Version != DefaultVersion {
		t.Errorf("Version = %q, want %q", p.Version, DefaultVersion)
	}
}

func TestFixturePartialReload(t *testing.T) {
	f := New()
	req := protocolRequest("GET", "/users")
	req.Header.Set(transport.HeaderPartialProperties, "stats")
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	p, err := page.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Properties) != 1 {
		t.Errorf("Properties = %v, want only stats", p.Properties)
	}
	if page.IsDeferred(p.Properties["stats"]) {
		t.Error("requested stats still deferred")
	}
}

func TestFixtureVersionMismatch(t *testing.T) {
	f := New()
	req := protocolRequest("GET", "/users")
	req.Header.Set(transport.HeaderVersion, "stale")
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != transport.StatusRedirect {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if !strings.HasSuffix(rec.Header().Get(transport.HeaderLocation), "/users") {
		t.Errorf("location = %q", rec.Header().Get(transport.HeaderLocation))
	}
}

func TestFixtureHTMLShell(t *testing.T) {
	f := New()
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get(transport.HeaderProtocol) != "" {
		t.Error("HTML response must not carry the protocol marker")
	}
	if !strings.Contains(rec.Body.String(), `data-page="`) {
		t.Errorf("body = %s, want embedded page", rec.Body.String())
	}
}

func TestFixtureRecordsRequests(t *testing.T) {
	f := New()
	f.ServeHTTP(httptest.NewRecorder(), protocolRequest("GET", "/users/2"))
	f.ServeHTTP(httptest.NewRecorder(), protocolRequest("GET", "/external"))

	reqs := f.Requests()
	if len(reqs) != 2 {
		t.Fatalf("len(Requests()) = %d, want 2", len(reqs))
	}
	last, _ := f.LastRequest()
	if last.Path != "/external" {
		t.Errorf("LastRequest().Path = %q", last.Path)
	}
}

func TestBuilder(t *testing.T) {
	base := NewPage("https://app.test/users/1").Fragment("main", "users.show", nil).Build()
	p := NewPage("https://app.test/users/1/edit").
		Prop("title", "Edit").
		Fragment("modal", "users.edit", page.Properties{"id": 1}).
		Clear("sidebar").
		Base(base).
		Build()

	modal := p.Fragments.Top("modal")
	if modal == nil || modal.Page == nil || modal.Location().Href != "https://app.test/users/1/edit" {
		t.Errorf("modal fragment not attached: %+v", modal)
	}
	if stack, ok := p.Fragments["sidebar"]; !ok || stack != nil {
		t.Error("sidebar should be an explicit clear")
	}
	if p.Base.Fragments.Top("main").Location().Pathname != "/users/1" {
		t.Error("base fragment location mismatch")
	}
}
