// Package notify provides the toast and refresh sinks used by the workflow
// controller: an in-memory recorder per request, a zap logger and a
// server-sent events hub for connected pages.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"speciesdesk/internal/workflow"
)

var (
	_ workflow.Notifier  = (*Recorder)(nil)
	_ workflow.Refresher = (*Recorder)(nil)
	_ workflow.Notifier  = (*LogNotifier)(nil)
	_ workflow.Refresher = (*LogNotifier)(nil)
)

// Recorder collects toasts and refresh requests until drained.
type Recorder struct {
	mu        sync.Mutex
	toasts    []workflow.Notification
	refreshes int
}

// Notify implements workflow.Notifier.
func (r *Recorder) Notify(n workflow.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, n)
}

// Refresh implements workflow.Refresher.
func (r *Recorder) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}

// Drain returns everything recorded since the last call and resets the recorder.
func (r *Recorder) Drain() ([]workflow.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	toasts := r.toasts
	refresh := r.refreshes > 0
	r.toasts = nil
	r.refreshes = 0
	if toasts == nil {
		toasts = []workflow.Notification{}
	}
	return toasts, refresh
}

// LogNotifier writes toasts and refresh requests to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier logging under the "notify" name.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

// Notify implements workflow.Notifier.
func (l *LogNotifier) Notify(n workflow.Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
	if n.Severity == workflow.SeverityDestructive {
		l.logger.Warn("toast", fields...)
		return
	}
	l.logger.Info("toast", fields...)
}

// Refresh implements workflow.Refresher.
func (l *LogNotifier) Refresh() {
	l.logger.Debug("refresh requested")
}

type fanout []workflow.Notifier

func (f fanout) Notify(n workflow.Notification) {
	for _, target := range f {
		target.Notify(n)
	}
}

// Fanout delivers each toast to every non-nil notifier in order.
func Fanout(notifiers ...workflow.Notifier) workflow.Notifier {
	out := make(fanout, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

type refreshFanout []workflow.Refresher

func (f refreshFanout) Refresh() {
	for _, target := range f {
		target.Refresh()
	}
}

// FanoutRefresh delivers each refresh to every non-nil refresher in order.
func FanoutRefresh(refreshers ...workflow.Refresher) workflow.Refresher {
	out := make(refreshFanout, 0, len(refreshers))
	for _, r := range refreshers {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
