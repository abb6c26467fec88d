package events

import (
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

// Name identifies an event type.
type Name string

const (
	Before    Name = "before"
	Start     Name = "start"
	Progress  Name = "progress"
	Finish    Name = "finish"
	Navigate  Name = "navigate"
	Cancel    Name = "cancel"
	Success   Name = "success"
	Error     Name = "error"
	Invalid   Name = "invalid"
	Exception Name = "exception"
)

// Names lists every event type in lifecycle order.
var Names = []Name{Before, Start, Progress, Finish, Navigate, Cancel, Success, Error, Invalid, Exception}

// Cancelable reports whether events of this type honour PreventDefault.
func (n Name) Cancelable() bool {
	return n != Exception
}

// UploadProgress describes request body upload progress.
type UploadProgress struct {
	Loaded     int64   `json:"loaded"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Event is one emission. Only the fields relevant to Name are set.
type Event struct {
	Name Name

	// Visit is a snapshot of the visit the event belongs to.
	Visit *page.Visit

	// Page is set for navigate, success and error.
	Page *page.Page

	// Progress is set for progress.
	Progress *UploadProgress

	// Errors is set for error.
	Errors map[string]any

	// Response is set for invalid.
	Response *transport.Response

	// Err is set for exception.
	Err error

	prevented bool
}

// New returns an event of the given type.
func New(name Name) *Event {
	return &Event{Name: name}
}

// WithVisit sets the visit snapshot.
func (e *Event) WithVisit(v *page.Visit) *Event {
	e.Visit = v
	return e
}

// WithPage sets the page snapshot.
func (e *Event) WithPage(p *page.Page) *Event {
	e.Page = p
	return e
}

// Cancelable reports whether PreventDefault has an effect.
func (e *Event) Cancelable() bool {
	return e.Name.Cancelable()
}

// PreventDefault cancels a cancelable event. It is a no-op otherwise.
func (e *Event) PreventDefault() {
	if e.Cancelable() {
		e.prevented = true
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}
