package bridge

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/navtest"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/router"
	"github.com/vango-dev/navigare/pkg/transport"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHub(t *testing.T) (*Hub, *router.Router, *websocket.Conn) {
	t.Helper()
	tr := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		b := navtest.NewPage(req.URL).Fragment("main", "page", nil)
		if req.Method == http.MethodPost {
			b.Errors(map[string]any{"name": "required"})
		}
		body, _ := page.Encode(b.Build())
		return &transport.Response{
			Status: http.StatusOK,
			Header: http.Header{transport.HeaderProtocol: {"true"}},
			Body:   body,
		}, nil
	})
	initial := navtest.NewPage("https://app.test/").Fragment("main", "home", nil).Build()
	r, err := router.New(initial,
		router.WithLogger(quietLogger()),
		router.WithPort(history.NewMemoryPort("https://app.test/")),
		router.WithTransport(tr),
	)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}

	hub := NewHub(r, WithLogger(quietLogger()))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		r.Wait()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	first := readMessage(t, conn)
	if first.Type != MessagePage || first.Page == nil {
		t.Fatalf("first message = %+v, want page snapshot", first)
	}
	if first.Page.Location.Pathname != "/" {
		t.Errorf("snapshot path = %s, want /", first.Page.Location.Pathname)
	}
	return hub, r, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

// readUntil collects messages up to and including the reply to id.
func readUntil(t *testing.T, conn *websocket.Conn, id string) ([]Message, Message) {
	t.Helper()
	var seen []Message
	for {
		msg := readMessage(t, conn)
		if (msg.Type == MessageAck || msg.Type == MessageError) && msg.ID == id {
			return seen, msg
		}
		seen = append(seen, msg)
	}
}

func TestVisitCommandStreamsEvents(t *testing.T) {
	_, r, conn := newHub(t)

	cmd := Command{Type: CommandVisit, ID: "1", Href: "/users", Data: map[string]any{"page": 2}}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	seen, reply := readUntil(t, conn, "1")

	if reply.Type != MessageAck {
		t.Fatalf("reply = %+v, want ack", reply)
	}
	if reply.Visit == nil || !reply.Visit.Completed {
		t.Errorf("ack visit = %+v, want completed", reply.Visit)
	}
	var names []string
	for _, m := range seen {
		// The deferred properties of /users reload in a visit of their own.
		if m.Type == MessageEvent && m.Visit != nil && reply.Visit != nil && m.Visit.ID == reply.Visit.ID {
			names = append(names, string(m.Event))
		}
	}
	want := "before,start,navigate,success,finish"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
	if got := r.Page().Location.Href; got != "https://app.test/users?page=2" {
		t.Errorf("router page = %s, want https://app.test/users?page=2", got)
	}
}

func TestPostCommandCarriesErrors(t *testing.T) {
	_, _, conn := newHub(t)

	conn.WriteJSON(Command{Type: CommandVisit, ID: "p", Href: "/users", Method: "post", Data: map[string]any{}})
	seen, reply := readUntil(t, conn, "p")
	if reply.Type != MessageAck {
		t.Fatalf("reply = %+v, want ack", reply)
	}
	var errs map[string]any
	for _, m := range seen {
		if m.Event == events.Error {
			errs = m.Errors
		}
	}
	if errs["name"] != "required" {
		t.Errorf("error event errors = %v, want name=required", errs)
	}
}

func TestBadCommands(t *testing.T) {
	_, _, conn := newHub(t)

	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	if msg := readMessage(t, conn); msg.Type != MessageError || !strings.Contains(msg.Error, "malformed") {
		t.Errorf("malformed reply = %+v", msg)
	}

	conn.WriteJSON(Command{Type: "teleport", ID: "x"})
	_, reply := readUntil(t, conn, "x")
	if reply.Type != MessageError || !strings.Contains(reply.Error, "teleport") {
		t.Errorf("unknown command reply = %+v", reply)
	}
}

func TestBackCommand(t *testing.T) {
	_, r, conn := newHub(t)

	conn.WriteJSON(Command{Type: CommandVisit, ID: "1", Href: "/a"})
	readUntil(t, conn, "1")
	conn.WriteJSON(Command{Type: CommandBack, ID: "2"})
	readUntil(t, conn, "2")

	if got := r.Page().Location.Pathname; got != "/" {
		t.Errorf("page after back = %s, want /", got)
	}
}

func TestClientCountTracksDisconnects(t *testing.T) {
	hub, _, conn := newHub(t)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d after disconnect, want 0", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
