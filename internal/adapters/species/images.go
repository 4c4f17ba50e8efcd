package species

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"speciesdesk/internal/blob"
)

const imagesPath = "/api/v1/species/images/"

// ImageURL returns the public URL an uploaded image is served from.
func (h *Handler) ImageURL(key string) string {
	return h.publicURL + imagesPath + key
}

func imageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	if actingUser(r) == "" {
		writeError(w, http.StatusUnauthorized, "missing "+HeaderActingUser)
		return
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, "image content type required")
		return
	}
	key := uuid.NewString() + imageExtension(mediaType)
	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	info, err := h.blobs.Put(r.Context(), key, body, blob.PutOptions{
		ContentType: mediaType,
		Metadata:    map[string]string{"author": actingUser(r)},
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		h.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusBadGateway, "image upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":  info.Key,
		"url":  h.ImageURL(info.Key),
		"size": info.Size,
		"etag": info.ETag,
	})
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		http.NotFound(w, r)
		return
	}
	info, rc, err := h.blobs.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("image read failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "image read failed")
		return
	}
	defer rc.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("image write interrupted", zap.Error(err))
	}
}
