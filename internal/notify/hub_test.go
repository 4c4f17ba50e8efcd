package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"speciesdesk/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type sseMessage struct {
	event string
	data  Event
}

func readEvents(t *testing.T, r *bufio.Reader, n int) []sseMessage {
	t.Helper()
	var out []sseMessage
	var current sseMessage
	for len(out) < n {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
		case line == "" && current.event != "":
			out = append(out, current)
			current = sseMessage{}
		}
	}
	return out
}

func openStream(t *testing.T, ctx context.Context, srv *httptest.Server, user string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("X-User", user)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return resp
}

func userStreams(hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Stream(w, r, r.Header.Get("X-User"))
	})
}

func TestHubStreamsToastsAndRefreshes(t *testing.T) {
	hub := NewHub(WithHeartbeat(10 * time.Millisecond))
	srv := httptest.NewServer(userStreams(hub))
	defer srv.Close()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp := openStream(t, ctx, srv, "u1")
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type %q", ct)
	}
	waitFor(t, func() bool { return hub.Clients() == 1 })

	hub.For("u1").Notify(workflow.Notification{Title: workflow.TitleFailure, Description: "network error", Severity: workflow.SeverityDestructive})
	hub.Refresh()

	events := readEvents(t, bufio.NewReader(resp.Body), 2)
	if events[0].event != EventToast || events[0].data.Toast == nil || events[0].data.Toast.Description != "network error" {
		t.Fatalf("unexpected toast event %+v", events[0])
	}
	if events[1].event != EventRefresh || events[1].data.Toast != nil || events[1].data.At.IsZero() {
		t.Fatalf("unexpected refresh event %+v", events[1])
	}

	cancel()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestHubToastsReachOnlyTheirRecipient(t *testing.T) {
	hub := NewHub()
	owner, ok := hub.subscribe("u1")
	if !ok {
		t.Fatal("subscribe failed")
	}
	intruder, _ := hub.subscribe("intruder")
	anonymous, _ := hub.subscribe("")

	hub.For("intruder").Notify(workflow.Notification{Title: workflow.TitleFailure, Description: workflow.MsgDeleteNotOwner})
	hub.For("").Notify(workflow.Notification{Title: workflow.TitleFailure, Description: "dropped"})
	hub.Refresh()

	tests := []struct {
		name  string
		ch    chan Event
		types []string
	}{
		{name: "owner", ch: owner, types: []string{EventRefresh}},
		{name: "intruder", ch: intruder, types: []string{EventToast, EventRefresh}},
		{name: "anonymous", ch: anonymous, types: []string{EventRefresh}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.ch) != len(tt.types) {
				t.Fatalf("got %d events want %d", len(tt.ch), len(tt.types))
			}
			for _, want := range tt.types {
				if ev := <-tt.ch; ev.Type != want {
					t.Fatalf("event %q want %q", ev.Type, want)
				}
			}
		})
	}
}

func TestHubDropsEventsForSlowClients(t *testing.T) {
	hub := NewHub()
	ch, ok := hub.subscribe("")
	if !ok {
		t.Fatal("subscribe failed")
	}
	for i := 0; i < clientBuffer+5; i++ {
		hub.Refresh()
	}
	if len(ch) != clientBuffer {
		t.Fatalf("buffered %d events", len(ch))
	}
	hub.unsubscribe(ch)
	if hub.Clients() != 0 {
		t.Fatal("client not removed")
	}
}

func TestHubCloseEndsStreams(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
		close(done)
	}()
	waitFor(t, func() bool { return hub.Clients() == 1 })
	hub.Close()
	hub.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after Close")
	}

	late := httptest.NewRecorder()
	hub.ServeHTTP(late, httptest.NewRequest(http.MethodGet, "/events", nil))
	if late.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after close = %d", late.Code)
	}
}
