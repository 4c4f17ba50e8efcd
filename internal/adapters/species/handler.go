// Package species exposes the species pages, the edit and delete dialogs,
// image uploads and the refresh event stream over HTTP.
package species

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"speciesdesk/internal/blob"
	"speciesdesk/internal/notify"
	"speciesdesk/internal/view"
	"speciesdesk/internal/workflow"
	"speciesdesk/pkg/domain"
)

// HeaderActingUser carries the signed-in user id set by the host application.
const HeaderActingUser = "X-Acting-User"

const (
	defaultSessionTTL = 30 * time.Minute
	defaultMaxUpload  = 10 << 20
)

// Backend is the record source and mutation gateway behind the handler.
type Backend interface {
	domain.Gateway
	domain.Reader
}

// Options wires the handler's collaborators. Backend is required.
type Options struct {
	Backend    Backend
	Blobs      blob.Store
	Hub        *notify.Hub
	Logger     *zap.Logger
	Gatherer   prometheus.Gatherer
	PublicURL  string
	SessionTTL time.Duration
	// MaxUploadBytes caps image uploads. Zero uses 10 MiB.
	MaxUploadBytes int64
}

// Handler serves the species HTTP surface.
type Handler struct {
	backend   Backend
	blobs     blob.Store
	hub       *notify.Hub
	logger    *zap.Logger
	gatherer  prometheus.Gatherer
	renderer  *view.Renderer
	sessions  *cache.Cache
	publicURL string
	maxUpload int64
}

// NewHandler validates opts and parses the page templates.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Backend == nil {
		return nil, errors.New("species backend not configured")
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	h := &Handler{
		backend:   opts.Backend,
		blobs:     opts.Blobs,
		hub:       opts.Hub,
		logger:    opts.Logger,
		gatherer:  opts.Gatherer,
		renderer:  renderer,
		sessions:  cache.New(ttl, 2*ttl),
		publicURL: opts.PublicURL,
		maxUpload: opts.MaxUploadBytes,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.hub == nil {
		h.hub = notify.NewHub(notify.WithHubLogger(h.logger))
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	if h.gatherer == nil {
		h.gatherer = prometheus.DefaultGatherer
	}
	return h, nil
}

// Router builds the route table wrapped in recovery and access logging.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1/species").Subrouter()
	api.HandleFunc("", h.handleList).Methods(http.MethodGet)
	api.HandleFunc("/events", h.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/images", h.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/images/{key}", h.handleImage).Methods(http.MethodGet)
	api.HandleFunc("/edit/{session}", h.handleSetField).Methods(http.MethodPatch)
	api.HandleFunc("/edit/{session}", h.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/edit/{session}/open", h.handleReopen).Methods(http.MethodPost)
	api.HandleFunc("/edit/{session}/submit", h.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/{id}", h.handleDetails).Methods(http.MethodGet)
	api.HandleFunc("/{id}/edit", h.handleOpenEdit).Methods(http.MethodPost)
	api.HandleFunc("/{id}/delete", h.handleDelete).Methods(http.MethodPost)

	r.HandleFunc("/species", h.handleListPage).Methods(http.MethodGet)
	r.HandleFunc("/species/{id}", h.handleDetailsPage).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	access := zap.NewStdLog(h.logger.Named("http")).Writer()
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(h.logger.Named("panic"))),
	)
	return recovery(handlers.CombinedLoggingHandler(access, r))
}

// Close drops every open edit session and ends the event streams.
func (h *Handler) Close() {
	h.sessions.Flush()
	h.hub.Close()
}

func actingUser(r *http.Request) string {
	return r.Header.Get(HeaderActingUser)
}

// controller binds a workflow controller whose toasts are recorded for the
// response and streamed to the acting user's pages. Refreshes go to every page.
func (h *Handler) controller(rec *notify.Recorder, user string) *workflow.Controller {
	logs := notify.NewLogNotifier(h.logger)
	return workflow.NewController(h.backend,
		workflow.WithNotifier(notify.Fanout(rec, h.hub.For(user), logs)),
		workflow.WithRefresher(notify.FanoutRefresh(rec, h.hub, logs)),
		workflow.WithLogger(h.logger.Named("workflow")),
	)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	h.hub.Stream(w, r, actingUser(r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.backend.List(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"species": view.NewCards(records, actingUser(r))})
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	record, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"species": view.NewDetails(record)})
}

type deleteRequest struct {
	Confirm *bool `json:"confirm"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	record, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var prompt string
	confirmer := workflow.ConfirmerFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		if req.Confirm == nil {
			return false, nil
		}
		return *req.Confirm, nil
	})
	rec := &notify.Recorder{}
	outcome := h.controller(rec, actingUser(r)).Delete(r.Context(), record, actingUser(r), confirmer)
	toasts, refresh := rec.Drain()

	if req.Confirm == nil && outcome == workflow.OutcomeDeclined && prompt != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome": "confirm",
			"prompt":  prompt,
			"toasts":  toasts,
			"refresh": false,
		})
		return
	}
	writeJSON(w, outcomeStatus(outcome), map[string]any{
		"outcome": outcome,
		"toasts":  toasts,
		"refresh": refresh,
	})
}

// lookup loads the record named by the {id} route variable, writing a 404 or
// store error response on failure.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (domain.Species, bool) {
	record, err := h.backend.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.storeError(w, err)
		return domain.Species{}, false
	}
	return record, true
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	var notFound domain.ErrNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "species not found")
		return
	}
	h.logger.Error("species store call failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, domain.ErrorMessage(err))
}

func outcomeStatus(o workflow.Outcome) int {
	switch o {
	case workflow.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case workflow.OutcomeUnauthorized:
		return http.StatusForbidden
	case workflow.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
