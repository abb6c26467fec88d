package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/vango-dev/navigare/pkg/location"
)

// Protocol headers.
const (
	HeaderProtocol          = "X-Navigare"
	HeaderLocation          = "X-Navigare-Location"
	HeaderPartialProperties = "X-Navigare-Partial-Properties"
	HeaderErrorBag          = "X-Navigare-Error-Bag"
	HeaderVersion           = "X-Navigare-Version"
)

// StatusRedirect is the status a server uses to demand a full-page
// redirect to the location in HeaderLocation.
const StatusRedirect = http.StatusConflict

// Request is one encoded visit request.
type Request struct {
	// URL is the absolute target without fragment.
	URL string

	// Method is the method put on the wire.
	Method string

	// Body is empty for GET requests.
	Body location.Body

	// Properties are sent comma-joined for partial reloads.
	Properties []string

	ErrorBag string
	Version  string

	// Headers are extra caller-supplied headers. They never override the
	// protocol headers.
	Headers map[string]string

	// OnProgress is called while the body is uploaded.
	OnProgress func(loaded, total int64)
}

// Kind classifies a response.
type Kind int

const (
	KindInvalid Kind = iota
	KindPage
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindRedirect:
		return "redirect"
	default:
		return "invalid"
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// URL is the final request URL after HTTP-level redirects.
	URL string
}

// IsProtocol reports whether the response carries the protocol marker.
func (r *Response) IsProtocol() bool {
	return r != nil && r.Header.Get(HeaderProtocol) != ""
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// RedirectLocation returns the location a redirect response points to.
func (r *Response) RedirectLocation() string {
	if r == nil {
		return ""
	}
	return r.Header.Get(HeaderLocation)
}

// Kind classifies the response. A 409 with a location header is a redirect
// whatever its body; any other response with the protocol marker is a
// page, including error statuses used for validation pages.
func (r *Response) Kind() Kind {
	switch {
	case r == nil:
		return KindInvalid
	case r.Status == StatusRedirect && r.RedirectLocation() != "":
		return KindRedirect
	case r.IsProtocol():
		return KindPage
	default:
		return KindInvalid
	}
}

// Transport executes visit requests.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// headers builds the header set for req.
func headers(req *Request) http.Header {
	h := make(http.Header)
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	h.Set("Accept", "text/html, application/xhtml+xml")
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set(HeaderProtocol, "true")
	if len(req.Properties) > 0 {
		h.Set(HeaderPartialProperties, strings.Join(req.Properties, ","))
	}
	if req.ErrorBag != "" {
		h.Set(HeaderErrorBag, req.ErrorBag)
	}
	if req.Version != "" {
		h.Set(HeaderVersion, req.Version)
	}
	if req.Body.ContentType != "" {
		h.Set("Content-Type", req.Body.ContentType)
	}
	return h
}
