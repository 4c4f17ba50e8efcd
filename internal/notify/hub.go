package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"speciesdesk/internal/workflow"
)

var (
	_ workflow.Refresher = (*Hub)(nil)
	_ workflow.Notifier  = userNotifier{}
	_ http.Handler       = (*Hub)(nil)
)

// Event types streamed to pages.
const (
	EventToast   = "toast"
	EventRefresh = "refresh"
)

const (
	clientBuffer     = 32
	defaultHeartbeat = 30 * time.Second
)

// Event is one server-sent message.
type Event struct {
	Type  string                 `json:"type"`
	Toast *workflow.Notification `json:"toast,omitempty"`
	At    time.Time              `json:"at"`
}

// Hub streams server-sent events to connected pages. Refresh requests reach
// every page; toasts reach only the streams opened by their recipient.
// Slow clients miss events rather than block publishers.
type Hub struct {
	logger    *zap.Logger
	heartbeat time.Duration
	nowFn     func() time.Time

	mu      sync.Mutex
	clients map[chan Event]string
	done    chan struct{}
	closed  bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHeartbeat sets the keep-alive comment interval.
func WithHeartbeat(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithHubLogger sets the logger.
func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub returns an open hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:    zap.NewNop(),
		heartbeat: defaultHeartbeat,
		nowFn:     func() time.Time { return time.Now().UTC() },
		clients:   make(map[chan Event]string),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("sse")
	return h
}

type userNotifier struct {
	hub  *Hub
	user string
}

func (u userNotifier) Notify(n workflow.Notification) {
	u.hub.PublishTo(u.user, Event{Type: EventToast, Toast: &n})
}

// For returns a notifier delivering toasts to the streams opened by user.
// Toasts for an empty user reach no stream.
func (h *Hub) For(user string) workflow.Notifier {
	return userNotifier{hub: h, user: user}
}

// Refresh implements workflow.Refresher.
func (h *Hub) Refresh() {
	h.Publish(Event{Type: EventRefresh})
}

// Publish sends ev to every connected client.
func (h *Hub) Publish(ev Event) {
	h.send(ev, func(string) bool { return true })
}

// PublishTo sends ev to the clients subscribed as user.
func (h *Hub) PublishTo(user string, ev Event) {
	if user == "" {
		return
	}
	h.send(ev, func(subscriber string) bool { return subscriber == user })
}

func (h *Hub) send(ev Event, match func(user string) bool) {
	if ev.At.IsZero() {
		ev.At = h.nowFn()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, user := range h.clients {
		if !match(user) {
			continue
		}
		select {
		case ch <- ev:
		default:
			h.logger.Debug("client buffer full, dropping event", zap.String("type", ev.Type))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

func (h *Hub) subscribe(user string) (chan Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan Event, clientBuffer)
	h.clients[ch] = user
	return ch, true
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// ServeHTTP streams refresh events to an anonymous page.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Stream(w, r, "")
}

// Stream sends events to w until the client disconnects or the hub closes.
// The stream receives every refresh and the toasts addressed to user.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, user string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, ok := h.subscribe(user)
	if !ok {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer h.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("encode event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				h.logger.Debug("write event", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
