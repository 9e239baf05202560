package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mzahran/scalpbot/internal/domain"
)

// JournalHandler serves the archived signal and order history from object
// storage.
type JournalHandler struct {
	blobs  domain.BlobReader
	prefix string
	logger *slog.Logger
}

// NewJournalHandler creates a JournalHandler. blobs may be nil when the
// journal is disabled; every route then answers 501.
func NewJournalHandler(blobs domain.BlobReader, prefix string, logger *slog.Logger) *JournalHandler {
	if prefix == "" {
		prefix = "journal"
	}
	return &JournalHandler{
		blobs:  blobs,
		prefix: prefix,
		logger: logger.With(slog.String("component", "journal_handler")),
	}
}

// List handles GET /api/journal. The optional "stream" query parameter
// narrows the listing to one journal stream ("signals" or "orders").
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "journal storage is not configured")
		return
	}

	prefix := h.prefix + "/"
	if stream := r.URL.Query().Get("stream"); stream != "" {
		prefix += stream + "/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "journal list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "listing journal objects failed")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"objects": infos})
}

// Download handles GET /api/journal/{key...} and streams one archived
// batch back to the caller.
func (h *JournalHandler) Download(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "journal storage is not configured")
		return
	}

	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "object key is required")
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "journal object not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "journal download failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "fetching journal object failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "journal stream interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
