package manual

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flujoapp/flujo/internal/platform/httpx"
	"github.com/flujoapp/flujo/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler manages manual-entry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers manual-entry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listEntries)
	r.Post("/", h.createEntry)
	r.Delete("/{id}", h.deleteEntry)
}

type entryPayload struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	EntryDate   string  `json:"entry_date"`
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	entryDate, err := time.Parse(dateLayout, payload.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_date must be a YYYY-MM-DD date")
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), EntryInput{
		Kind:        Kind(payload.Kind),
		Description: payload.Description,
		Amount:      payload.Amount,
		EntryDate:   entryDate,
	})
	if err != nil {
		h.respondError(w, "create manual entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListRequest{Kind: Kind(q.Get("kind"))}
	var err error
	if v := q.Get("from"); v != "" {
		if req.From, err = time.Parse(dateLayout, v); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be a YYYY-MM-DD date")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if req.To, err = time.Parse(dateLayout, v); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be a YYYY-MM-DD date")
			return
		}
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	entries, total, err := h.service.ListEntries(r.Context(), req)
	if err != nil {
		h.respondError(w, "list manual entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": shared.NewPagination(req.Page, req.PerPage, total),
	})
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.respondError(w, "delete manual entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "manual entry not found")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
