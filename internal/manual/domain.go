package manual

import "time"

// Kind is the direction of a manual cash movement.
type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

// Entry is a cash movement entered by hand on the dashboard. Entries are
// fully independent of invoices; the reconciliation engine merges them into
// the ledger as-is.
type Entry struct {
	ID          int64     `json:"id"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	EntryDate   time.Time `json:"entry_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryInput carries a new manual movement.
type EntryInput struct {
	Kind        Kind      `json:"kind" validate:"required,oneof=INCOME EXPENSE"`
	Description string    `json:"description" validate:"required,max=255"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	EntryDate   time.Time `json:"entry_date" validate:"required"`
}

// ListRequest filters and paginates entry listings.
type ListRequest struct {
	Kind    Kind
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}
