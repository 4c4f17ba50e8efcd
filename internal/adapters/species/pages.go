package species

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"speciesdesk/internal/view"
)

func (h *Handler) handleListPage(w http.ResponseWriter, r *http.Request) {
	records, err := h.backend.List(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderList(&buf, view.NewCards(records, actingUser(r)), actingUser(r)); err != nil {
		h.pageError(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (h *Handler) handleDetailsPage(w http.ResponseWriter, r *http.Request) {
	record, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderDetails(&buf, view.NewDetails(record)); err != nil {
		h.pageError(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (h *Handler) pageError(w http.ResponseWriter, err error) {
	h.logger.Error("render page", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
