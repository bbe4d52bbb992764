package cashflow

import (
	"strconv"
	"time"
)

// CreditNoteTypeCode is the DTE document type for a nota de crédito.
const CreditNoteTypeCode = "61"

// InvoiceKind distinguishes sale and purchase documents.
type InvoiceKind string

const (
	KindSale     InvoiceKind = "SALE"
	KindPurchase InvoiceKind = "PURCHASE"
)

// Direction indicates the cash-flow sign of an event.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// DateReason records which priority rule resolved an effective date.
type DateReason string

const (
	ReasonCreditNote DateReason = "CREDIT_NOTE"
	ReasonFactoring  DateReason = "FACTORING"
	ReasonPayment    DateReason = "PAYMENT"
	ReasonDocument   DateReason = "DOCUMENT"
)

// Mode selects the running-balance baseline.
type Mode string

const (
	// ModeMonthOnly starts the running balance at zero.
	ModeMonthOnly Mode = "MONTH_ONLY"
	// ModeFullHistory seeds the running balance with the accumulated total
	// of every record strictly dated before the visible window.
	ModeFullHistory Mode = "FULL_HISTORY"
)

// Window bounds the visible ledger, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window. A zero bound is open.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Invoice is a sale or purchase document as fetched from the record store.
// Read-only to the reconciliation core.
type Invoice struct {
	ID               int64
	Folio            string
	CounterpartyName string
	CounterpartyRUT  string
	DocumentTypeCode string
	DocumentDate     time.Time
	TotalAmount      float64
	ReferencedFolio  string
	IsFactored       bool
	FactoringDate    time.Time
}

// IsCreditNote reports whether the invoice is a nota de crédito referencing
// an original document.
func (inv Invoice) IsCreditNote() bool {
	return inv.DocumentTypeCode == CreditNoteTypeCode && inv.ReferencedFolio != ""
}

// BucketKey is the folio when present, otherwise the numeric id as string.
func (inv Invoice) BucketKey() string {
	if inv.Folio != "" {
		return inv.Folio
	}
	return strconv.FormatInt(inv.ID, 10)
}

// DocumentLink bridges an invoice to its canonical external document record
// and, through it, to payments.
type DocumentLink struct {
	ID                int64
	SaleInvoiceID     int64
	PurchaseInvoiceID int64
	EmissionDate      time.Time
	CreatedAt         time.Time
}

// Payment is one (possibly partial) payment against a document link.
type Payment struct {
	ID             int64
	DocumentLinkID int64
	PaidAt         time.Time
	Amount         float64
}

// ManualEntry is a cash movement entered by hand, independent of invoices.
type ManualEntry struct {
	ID          int64
	Kind        Direction
	Description string
	Amount      float64
	EntryDate   time.Time
}

// Cluster groups an original invoice with the credit notes referencing it.
type Cluster struct {
	Original       *Invoice
	CreditNotes    []Invoice
	NetAmount      float64
	FullyCancelled bool
}

// CashFlowEvent is one signed movement in the unified ledger. Amount is
// always non-negative; the sign lives in Direction.
type CashFlowEvent struct {
	EffectiveDate   time.Time   `json:"effective_date"`
	Direction       Direction   `json:"direction"`
	Description     string      `json:"description"`
	Amount          float64     `json:"amount"`
	DocumentLabel   string      `json:"document_label"`
	FullyPaid       bool        `json:"fully_paid"`
	DateReason      DateReason  `json:"date_reason,omitempty"`
	SourceInvoiceID int64       `json:"source_invoice_id,omitempty"`
	SourceKind      InvoiceKind `json:"source_kind,omitempty"`
}

// LedgerEntry is a cash-flow event with its running balance attached.
type LedgerEntry struct {
	CashFlowEvent
	RunningBalance float64 `json:"running_balance"`
}
