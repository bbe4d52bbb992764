package cashflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSourceUnavailable marks hard transport failures from the record store.
// Data-shape anomalies never produce it; only fetch failures do.
var ErrSourceUnavailable = errors.New("cashflow: source unavailable")

// ErrNotFound indicates the target invoice does not exist.
var ErrNotFound = errors.New("cashflow: not found")

// Repository provides PostgreSQL backed access to the source collections.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func fetchErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s: %w", op, pgErr.Code, ErrSourceUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrSourceUnavailable)
}

const invoiceColumns = `
	id, folio, counterparty_name, counterparty_rut, document_type_code,
	document_date, total_amount, referenced_folio, is_factored, factoring_date`

// ListSaleInvoices fetches the full sale history; credit-note linkage needs
// records outside any visible window.
func (r *Repository) ListSaleInvoices(ctx context.Context) ([]Invoice, error) {
	return r.listInvoices(ctx, "sale_invoices", "list sale invoices")
}

// ListPurchaseInvoices fetches the full purchase history.
func (r *Repository) ListPurchaseInvoices(ctx context.Context) ([]Invoice, error) {
	return r.listInvoices(ctx, "purchase_invoices", "list purchase invoices")
}

func (r *Repository) listInvoices(ctx context.Context, table, op string) ([]Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM ` + table + ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fetchErr(op, err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		var folio, rut, refFolio pgtype.Text
		var docDate, factDate pgtype.Date
		if err := rows.Scan(
			&inv.ID, &folio, &inv.CounterpartyName, &rut, &inv.DocumentTypeCode,
			&docDate, &inv.TotalAmount, &refFolio, &inv.IsFactored, &factDate,
		); err != nil {
			return nil, fetchErr(op, err)
		}
		inv.Folio = folio.String
		inv.CounterpartyRUT = rut.String
		inv.ReferencedFolio = refFolio.String
		if docDate.Valid {
			inv.DocumentDate = docDate.Time
		}
		if factDate.Valid {
			inv.FactoringDate = factDate.Time
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(op, err)
	}
	return out, nil
}

// ListDocumentLinks fetches every invoice-to-document bridge record.
func (r *Repository) ListDocumentLinks(ctx context.Context) ([]DocumentLink, error) {
	const op = "list document links"
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_invoice_id, purchase_invoice_id, emission_date, created_at
		FROM document_links ORDER BY id`)
	if err != nil {
		return nil, fetchErr(op, err)
	}
	defer rows.Close()

	var out []DocumentLink
	for rows.Next() {
		var link DocumentLink
		var saleID, purchaseID pgtype.Int8
		var emission pgtype.Date
		if err := rows.Scan(&link.ID, &saleID, &purchaseID, &emission, &link.CreatedAt); err != nil {
			return nil, fetchErr(op, err)
		}
		link.SaleInvoiceID = saleID.Int64
		link.PurchaseInvoiceID = purchaseID.Int64
		if emission.Valid {
			link.EmissionDate = emission.Time
		}
		out = append(out, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(op, err)
	}
	return out, nil
}

// ListPayments fetches all payments. Producers drifted on the amount column
// name over time; the COALESCE here is the single place that legacy shape is
// normalised, reconciliation only ever sees the canonical field.
func (r *Repository) ListPayments(ctx context.Context) ([]Payment, error) {
	const op = "list payments"
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_link_id, paid_at, COALESCE(amount, legacy_amount, 0)
		FROM payments ORDER BY paid_at, id`)
	if err != nil {
		return nil, fetchErr(op, err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		var paidAt pgtype.Date
		if err := rows.Scan(&p.ID, &p.DocumentLinkID, &paidAt, &p.Amount); err != nil {
			return nil, fetchErr(op, err)
		}
		if paidAt.Valid {
			p.PaidAt = paidAt.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(op, err)
	}
	return out, nil
}

// ListManualEntries fetches manual movements, optionally bounded by date.
func (r *Repository) ListManualEntries(ctx context.Context, from, to time.Time) ([]ManualEntry, error) {
	const op = "list manual entries"
	query := `
		SELECT id, kind, description, amount, entry_date
		FROM manual_entries
		WHERE ($1::date IS NULL OR entry_date >= $1)
		  AND ($2::date IS NULL OR entry_date <= $2)
		ORDER BY entry_date, id`
	var fromArg, toArg pgtype.Date
	if !from.IsZero() {
		fromArg = pgtype.Date{Time: from, Valid: true}
	}
	if !to.IsZero() {
		toArg = pgtype.Date{Time: to, Valid: true}
	}
	rows, err := r.pool.Query(ctx, query, fromArg, toArg)
	if err != nil {
		return nil, fetchErr(op, err)
	}
	defer rows.Close()

	var out []ManualEntry
	for rows.Next() {
		var m ManualEntry
		var entryDate pgtype.Date
		if err := rows.Scan(&m.ID, &m.Kind, &m.Description, &m.Amount, &entryDate); err != nil {
			return nil, fetchErr(op, err)
		}
		if entryDate.Valid {
			m.EntryDate = entryDate.Time
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(op, err)
	}
	return out, nil
}

// SetFactoring flags a sale invoice as factored at the given date.
func (r *Repository) SetFactoring(ctx context.Context, invoiceID int64, date time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sale_invoices SET is_factored = TRUE, factoring_date = $2
		WHERE id = $1`, invoiceID, date)
	if err != nil {
		return fetchErr("set factoring", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearFactoring removes the factoring flag and date from a sale invoice.
func (r *Repository) ClearFactoring(ctx context.Context, invoiceID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sale_invoices SET is_factored = FALSE, factoring_date = NULL
		WHERE id = $1`, invoiceID)
	if err != nil {
		return fetchErr("clear factoring", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
