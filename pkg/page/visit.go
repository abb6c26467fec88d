package page

import (
	"github.com/google/uuid"

	"github.com/vango-dev/navigare/pkg/location"
)

// Visit is one navigation attempt. ID never changes once assigned; every
// other field advances in place as the lifecycle progresses:
//
//	pending -> completed
//	pending -> cancelled (Interrupted reports supersession by a newer visit)
type Visit struct {
	ID       string            `json:"id"`
	Location location.Location `json:"location"`
	Method   string            `json:"method"`
	Data     any               `json:"data,omitempty"`

	Replace        bool `json:"replace"`
	Background     bool `json:"background"`
	PreserveScroll bool `json:"preserveScroll"`
	PreserveState  bool `json:"preserveState"`
	PreserveURL    bool `json:"preserveUrl"`

	// Properties lists the property names requested by a partial reload.
	Properties []string          `json:"properties,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	ErrorBag   string            `json:"errorBag,omitempty"`

	Completed   bool `json:"completed"`
	Cancelled   bool `json:"cancelled"`
	Interrupted bool `json:"interrupted"`
}

// NewVisitID returns a collision-resistant visit identifier: a random
// 128-bit UUID without dashes.
func NewVisitID() string {
	id := uuid.New()
	const hex = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, b := range id {
		buf[i*2] = hex[b>>4]
		buf[i*2+1] = hex[b&0x0f]
	}
	return string(buf)
}

// NewVisit returns a pending GET visit to loc with a fresh ID.
func NewVisit(loc location.Location) *Visit {
	return &Visit{
		ID:       NewVisitID(),
		Location: loc,
		Method:   "GET",
	}
}

// Finished reports whether the visit reached a terminal state.
func (v *Visit) Finished() bool {
	return v != nil && (v.Completed || v.Cancelled)
}

// Clone returns a copy of the visit. Data is shared because it may hold
// readers that cannot be duplicated.
func (v *Visit) Clone() *Visit {
	if v == nil {
		return nil
	}
	c := *v
	if v.Properties != nil {
		c.Properties = append([]string(nil), v.Properties...)
	}
	if v.Headers != nil {
		c.Headers = make(map[string]string, len(v.Headers))
		for k, val := range v.Headers {
			c.Headers[k] = val
		}
	}
	return &c
}
