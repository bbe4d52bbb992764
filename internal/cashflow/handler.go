package cashflow

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/flujoapp/flujo/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Handler exposes the cash-flow API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	printer  *message.Printer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		printer:  message.NewPrinter(language.MustParse("es-CL")),
	}
}

// MountRoutes registers cash-flow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.getLedger)
	r.Get("/export", h.exportCSV)
	r.Post("/invoices/{id}/factoring", h.markFactored)
	r.Delete("/invoices/{id}/factoring", h.unmarkFactored)
}

type ledgerResponse struct {
	Mode    Mode             `json:"mode"`
	From    string           `json:"from,omitempty"`
	To      string           `json:"to,omitempty"`
	Entries []ledgerEntryDTO `json:"entries"`
}

type ledgerEntryDTO struct {
	Date           string    `json:"date"`
	Direction      Direction `json:"direction"`
	Description    string    `json:"description"`
	Amount         float64   `json:"amount"`
	DocumentLabel  string    `json:"document_label"`
	FullyPaid      bool      `json:"fully_paid"`
	RunningBalance float64   `json:"running_balance"`
}

func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	window, mode, err := parseLedgerQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entries, err := h.service.CachedCashFlow(r.Context(), window, mode)
	if err != nil {
		h.respondServiceError(w, "compute cash flow", err)
		return
	}
	entries = ApplySort(entries, ParseSortSpecs(r.URL.Query().Get("sort")))

	resp := ledgerResponse{Mode: mode, Entries: make([]ledgerEntryDTO, 0, len(entries))}
	if window != nil {
		resp.From = window.From.Format(dateLayout)
		resp.To = window.To.Format(dateLayout)
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ledgerEntryDTO{
			Date:           e.EffectiveDate.Format(dateLayout),
			Direction:      e.Direction,
			Description:    e.Description,
			Amount:         e.Amount,
			DocumentLabel:  e.DocumentLabel,
			FullyPaid:      e.FullyPaid,
			RunningBalance: e.RunningBalance,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	window, mode, err := parseLedgerQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, err := h.service.CachedCashFlow(r.Context(), window, mode)
	if err != nil {
		h.respondServiceError(w, "export cash flow", err)
		return
	}
	entries = ApplySort(entries, ParseSortSpecs(r.URL.Query().Get("sort")))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="flujo_caja.csv"`)

	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	_ = writer.Write([]string{"Fecha", "Documento", "Descripción", "Tipo", "Monto", "Pagada", "Saldo"})
	for _, e := range entries {
		paid := ""
		if e.FullyPaid {
			paid = "sí"
		}
		_ = writer.Write([]string{
			e.EffectiveDate.Format(dateLayout),
			e.DocumentLabel,
			e.Description,
			string(e.Direction),
			h.formatAmount(e.Amount),
			paid,
			h.formatAmount(e.RunningBalance),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("write csv", slog.Any("error", err))
	}
}

func (h *Handler) formatAmount(v float64) string {
	return h.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

type factoringPayload struct {
	FactoringDate string `json:"factoring_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) markFactored(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || invoiceID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var payload factoringPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "factoring_date must be a YYYY-MM-DD date")
		return
	}
	date, _ := time.Parse(dateLayout, payload.FactoringDate)
	if err := h.service.MarkFactored(r.Context(), invoiceID, date); err != nil {
		h.respondServiceError(w, "mark factored", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": invoiceID, "is_factored": true})
}

func (h *Handler) unmarkFactored(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || invoiceID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	if err := h.service.UnmarkFactored(r.Context(), invoiceID); err != nil {
		h.respondServiceError(w, "unmark factored", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": invoiceID, "is_factored": false})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	default:
		// Fetch failures are a single user-visible message; a partial
		// ledger is never shown as if complete.
		httpx.Problem(w, http.StatusServiceUnavailable, "Cash Flow Unavailable", "could not load cash flow")
	}
}

func parseLedgerQuery(r *http.Request) (*Window, Mode, error) {
	q := r.URL.Query()
	mode := Mode(q.Get("mode"))
	if mode == "" {
		mode = ModeMonthOnly
	}

	fromStr, toStr := q.Get("from"), q.Get("to")
	if fromStr == "" && toStr == "" {
		return nil, mode, nil
	}
	var window Window
	var err error
	if fromStr != "" {
		if window.From, err = time.Parse(dateLayout, fromStr); err != nil {
			return nil, "", errInvalidDate("from")
		}
	}
	if toStr != "" {
		if window.To, err = time.Parse(dateLayout, toStr); err != nil {
			return nil, "", errInvalidDate("to")
		}
	}
	return &window, mode, nil
}

func errInvalidDate(field string) error {
	return &invalidDateError{field: field}
}

type invalidDateError struct{ field string }

func (e *invalidDateError) Error() string {
	return e.field + " must be a YYYY-MM-DD date"
}
