package location

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/vango-dev/navigare/internal/errors"
)

// Location is a fully decomposed, normalized URL.
type Location struct {
	Href     string `json:"href"`
	Host     string `json:"host"`
	Hostname string `json:"hostname"`
	Origin   string `json:"origin"`
	Pathname string `json:"pathname"`
	Port     string `json:"port"`
	Protocol string `json:"protocol"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
}

// Parse resolves raw against base and decomposes the result.
// A zero base requires raw to be absolute.
func Parse(raw string, base Location) (Location, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, errors.New("N002").WithDetail(raw).Wrap(err)
	}
	if base.Href != "" {
		b, err := url.Parse(base.Href)
		if err != nil {
			return Location{}, errors.New("N002").WithDetail(base.Href).Wrap(err)
		}
		ref = b.ResolveReference(ref)
	}
	if !ref.IsAbs() || ref.Host == "" {
		return Location{}, errors.New("N002").
			WithDetail(raw + " is relative and no base location is known").
			WithSuggestion("Construct the router with an initial page carrying an absolute location")
	}
	return FromURL(ref), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(raw string) Location {
	loc, err := Parse(raw, Location{})
	if err != nil {
		panic(err)
	}
	return loc
}

// FromURL decomposes an absolute URL.
func FromURL(u *url.URL) Location {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if port := n.Port(); (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
		n.Host = n.Hostname()
	}
	if n.Path == "" {
		n.Path = "/"
	}
	// url.URL keeps ForceQuery for "?" with no pairs; drop it so equal pages
	// stringify identically.
	n.ForceQuery = false

	loc := Location{
		Href:     n.String(),
		Host:     n.Host,
		Hostname: n.Hostname(),
		Port:     n.Port(),
		Protocol: n.Scheme + ":",
		Pathname: n.EscapedPath(),
		Origin:   n.Scheme + "://" + n.Host,
	}
	if n.RawQuery != "" {
		loc.Search = "?" + n.RawQuery
	}
	if frag := n.EscapedFragment(); frag != "" {
		loc.Hash = "#" + frag
	}
	return loc
}

// URL returns the location as a *url.URL.
func (l Location) URL() *url.URL {
	u, err := url.Parse(l.Href)
	if err != nil {
		return &url.URL{}
	}
	return u
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.Href == ""
}

// WithoutHash returns the href with any fragment identifier removed.
func (l Location) WithoutHash() string {
	if i := strings.IndexByte(l.Href, '#'); i >= 0 {
		return l.Href[:i]
	}
	return l.Href
}

// WithHash returns a copy of the location carrying the given hash
// ("#section" or "" to clear).
func (l Location) WithHash(hash string) Location {
	if hash != "" && !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	l.Href = l.WithoutHash() + hash
	l.Hash = hash
	return l
}

// SamePage reports whether both locations address the same page,
// ignoring the fragment identifier.
func (l Location) SamePage(other Location) bool {
	return l.WithoutHash() == other.WithoutHash()
}

// Equal reports whether both hrefs are identical, hash included.
func (l Location) Equal(other Location) bool {
	return l.Href == other.Href
}

// SameOrigin reports whether both locations share scheme, host and port.
func (l Location) SameOrigin(other Location) bool {
	return l.Origin == other.Origin
}

// String returns the href.
func (l Location) String() string {
	return l.Href
}

// Kind classifies a target relative to the current location.
type Kind int

const (
	// KindInternal targets the same origin and can be visited client-side.
	KindInternal Kind = iota

	// KindSamePage differs from the current location only by its hash.
	KindSamePage

	// KindExternal targets another origin and needs a full browser navigation.
	KindExternal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSamePage:
		return "same-page"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Classify reports how target relates to current.
func Classify(current, target Location) Kind {
	switch {
	case !current.SameOrigin(target):
		return KindExternal
	case current.SamePage(target) && target.Hash != "":
		return KindSamePage
	default:
		return KindInternal
	}
}

// UnmarshalJSON accepts either the decomposed object form or a plain href
// string. Relative hrefs are kept as-is until resolved against a base.
func (l *Location) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var href string
		if err := json.Unmarshal(data, &href); err != nil {
			return err
		}
		if parsed, err := Parse(href, Location{}); err == nil {
			*l = parsed
		} else {
			*l = Location{Href: href}
		}
		return nil
	}
	type plain Location
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Location(p)
	return nil
}
