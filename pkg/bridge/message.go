package bridge

import (
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/page"
)

// MessageType identifies an outbound message.
type MessageType string

const (
	MessageEvent MessageType = "event"
	MessagePage  MessageType = "page"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message is sent to clients.
type Message struct {
	Type MessageType `json:"type"`

	// ID echoes the command id for ack and error.
	ID string `json:"id,omitempty"`

	Event    events.Name            `json:"event,omitempty"`
	Visit    *page.Visit            `json:"visit,omitempty"`
	Page     *page.Page             `json:"page,omitempty"`
	Errors   map[string]any         `json:"errors,omitempty"`
	Progress *events.UploadProgress `json:"progress,omitempty"`
	Status   int                    `json:"status,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// CommandType identifies an inbound command.
type CommandType string

const (
	CommandVisit  CommandType = "visit"
	CommandReload CommandType = "reload"
	CommandBack   CommandType = "back"
	CommandCancel CommandType = "cancel"
)

// Command is received from clients.
type Command struct {
	Type CommandType `json:"type"`
	ID   string      `json:"id,omitempty"`

	Href           string            `json:"href,omitempty"`
	Method         string            `json:"method,omitempty"`
	Data           any               `json:"data,omitempty"`
	Replace        bool              `json:"replace,omitempty"`
	PreserveScroll bool              `json:"preserveScroll,omitempty"`
	PreserveState  bool              `json:"preserveState,omitempty"`
	Only           []string          `json:"only,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	ErrorBag       string            `json:"errorBag,omitempty"`

	// Fallback is visited by back when there is no earlier page.
	Fallback string `json:"fallback,omitempty"`

	// VisitID names the visit to cancel.
	VisitID string `json:"visitId,omitempty"`
}

// eventMessage converts a router event. Pages are omitted from progress
// events to keep upload chatter small.
func eventMessage(e *events.Event) Message {
	msg := Message{
		Type:     MessageEvent,
		Event:    e.Name,
		Visit:    e.Visit,
		Page:     e.Page,
		Errors:   e.Errors,
		Progress: e.Progress,
	}
	if e.Response != nil {
		msg.Status = e.Response.Status
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}
