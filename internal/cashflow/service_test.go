package cashflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	sales     []Invoice
	purchases []Invoice
	links     []DocumentLink
	payments  []Payment
	manual    []ManualEntry

	failSales    error
	failPayments error

	manualFrom time.Time
	manualTo   time.Time
}

func (r *memoryRepo) ListSaleInvoices(ctx context.Context) ([]Invoice, error) {
	if r.failSales != nil {
		return nil, r.failSales
	}
	return append([]Invoice(nil), r.sales...), nil
}

func (r *memoryRepo) ListPurchaseInvoices(ctx context.Context) ([]Invoice, error) {
	return append([]Invoice(nil), r.purchases...), nil
}

func (r *memoryRepo) ListDocumentLinks(ctx context.Context) ([]DocumentLink, error) {
	return append([]DocumentLink(nil), r.links...), nil
}

func (r *memoryRepo) ListPayments(ctx context.Context) ([]Payment, error) {
	if r.failPayments != nil {
		return nil, r.failPayments
	}
	return append([]Payment(nil), r.payments...), nil
}

func (r *memoryRepo) ListManualEntries(ctx context.Context, from, to time.Time) ([]ManualEntry, error) {
	r.manualFrom, r.manualTo = from, to
	var out []ManualEntry
	for _, m := range r.manual {
		if !from.IsZero() && m.EntryDate.Before(from) {
			continue
		}
		if !to.IsZero() && m.EntryDate.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) SetFactoring(ctx context.Context, invoiceID int64, date time.Time) error {
	for i := range r.sales {
		if r.sales[i].ID == invoiceID {
			r.sales[i].IsFactored = true
			r.sales[i].FactoringDate = date
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryRepo) ClearFactoring(ctx context.Context, invoiceID int64) error {
	for i := range r.sales {
		if r.sales[i].ID == invoiceID {
			r.sales[i].IsFactored = false
			r.sales[i].FactoringDate = time.Time{}
			return nil
		}
	}
	return ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, testLogger(), nil)
	svc.WithClock(func() time.Time { return day("2024-06-01") })
	return svc
}

func fixtureRepo() *memoryRepo {
	return &memoryRepo{
		sales: []Invoice{
			saleInvoice(1, "INV-1", 1000, "2024-01-05"),
			saleInvoice(2, "INV-2", 500, "2024-01-12"),
			creditNote(3, "NC-1", "INV-2", 500, "2024-01-20"),
			saleInvoice(4, "INV-OLD", 800, "2023-11-01"),
		},
		purchases: []Invoice{
			saleInvoice(10, "C-1", 300, "2024-01-08"),
		},
		links: []DocumentLink{
			{ID: 100, SaleInvoiceID: 2, EmissionDate: day("2024-01-22")},
			{ID: 101, SaleInvoiceID: 1},
			{ID: 102, PurchaseInvoiceID: 10},
		},
		payments: []Payment{
			{ID: 1, DocumentLinkID: 101, PaidAt: day("2024-01-15"), Amount: 600},
			{ID: 2, DocumentLinkID: 101, PaidAt: day("2024-02-02"), Amount: 400},
			{ID: 3, DocumentLinkID: 102, PaidAt: day("2024-01-09"), Amount: 300},
		},
		manual: []ManualEntry{
			{ID: 1, Kind: DirectionExpense, Description: "Arriendo", Amount: 200, EntryDate: day("2024-01-02")},
			{ID: 2, Kind: DirectionIncome, Description: "Aporte", Amount: 100, EntryDate: day("2023-12-15")},
		},
	}
}

func janWindow() *Window {
	return &Window{From: day("2024-01-01"), To: day("2024-01-31")}
}

func TestComputeCashFlowMonthOnly(t *testing.T) {
	repo := fixtureRepo()
	svc := newTestService(repo)

	entries, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeMonthOnly)
	require.NoError(t, err)

	// INV-OLD (2023) and the 2023 manual entry fall outside the window.
	// Expected inside: manual expense (Jan 2), purchase (Jan 9, payment
	// date), INV-1 (Jan 15, first payment), NC-1 (Jan 20), INV-2 (Jan 22,
	// link emission date).
	require.Len(t, entries, 5)
	require.Equal(t, "Manual-1", entries[0].DocumentLabel)
	require.Equal(t, day("2024-01-09"), entries[1].EffectiveDate)
	require.Equal(t, DirectionExpense, entries[1].Direction)

	require.Equal(t, "INV-1", entries[2].DocumentLabel)
	require.Equal(t, ReasonPayment, entries[2].DateReason)
	require.True(t, entries[2].FullyPaid) // 600+400 >= 1000

	require.Equal(t, "INV-2-NC1", entries[3].DocumentLabel)
	require.Equal(t, "INV-2", entries[4].DocumentLabel)
	require.Equal(t, ReasonCreditNote, entries[4].DateReason)
	require.False(t, entries[4].FullyPaid) // fully cancelled

	// Month-only mode starts the balance at zero.
	// -200 -300 +1000 -500 +500 = 500
	require.InDelta(t, 500, entries[4].RunningBalance, 0)

	// Manual entries were fetched with the window bounds.
	require.Equal(t, day("2024-01-01"), repo.manualFrom)
}

func TestComputeCashFlowFullHistoryBaseline(t *testing.T) {
	repo := fixtureRepo()
	svc := newTestService(repo)

	entries, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeFullHistory)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// Baseline: INV-OLD (+800) and the December manual income (+100),
	// both strictly before the window.
	require.InDelta(t, 900-200, entries[0].RunningBalance, 0)
	require.InDelta(t, 900+500, entries[len(entries)-1].RunningBalance, 0)

	// Full history mode fetches manual entries unbounded.
	require.True(t, repo.manualFrom.IsZero())
}

func TestComputeCashFlowIdempotent(t *testing.T) {
	// P4: an unchanged snapshot reconciles to the identical ledger.
	svc := newTestService(fixtureRepo())

	first, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeFullHistory)
	require.NoError(t, err)
	second, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeFullHistory)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestComputeCashFlowNilWindow(t *testing.T) {
	svc := newTestService(fixtureRepo())
	entries, err := svc.ComputeCashFlow(context.Background(), nil, ModeMonthOnly)
	require.NoError(t, err)
	// Everything is visible, baseline zero.
	require.Len(t, entries, 7)
}

func TestComputeCashFlowFetchFailureAborts(t *testing.T) {
	repo := fixtureRepo()
	repo.failPayments = errors.New("connection refused")
	svc := newTestService(repo)

	entries, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeMonthOnly)
	require.Error(t, err)
	require.Nil(t, entries)
}

func TestComputeCashFlowRejectsBadInput(t *testing.T) {
	svc := newTestService(fixtureRepo())

	_, err := svc.ComputeCashFlow(context.Background(), janWindow(), Mode("WEEKLY"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ComputeCashFlow(context.Background(), &Window{From: day("2024-02-01"), To: day("2024-01-01")}, ModeMonthOnly)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkFactoredChangesResolution(t *testing.T) {
	repo := fixtureRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.MarkFactored(context.Background(), 1, day("2024-01-03")))

	entries, err := svc.ComputeCashFlow(context.Background(), janWindow(), ModeMonthOnly)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.DocumentLabel == "INV-1" {
			found = true
			require.Equal(t, ReasonFactoring, e.DateReason)
			require.Equal(t, day("2024-01-03"), e.EffectiveDate)
		}
	}
	require.True(t, found)

	require.NoError(t, svc.UnmarkFactored(context.Background(), 1))
	entries, err = svc.ComputeCashFlow(context.Background(), janWindow(), ModeMonthOnly)
	require.NoError(t, err)
	for _, e := range entries {
		if e.DocumentLabel == "INV-1" {
			require.Equal(t, ReasonPayment, e.DateReason)
		}
	}
}

func TestMarkFactoredValidation(t *testing.T) {
	svc := newTestService(fixtureRepo())
	require.ErrorIs(t, svc.MarkFactored(context.Background(), 0, day("2024-01-03")), ErrInvalidInput)
	require.ErrorIs(t, svc.MarkFactored(context.Background(), 1, time.Time{}), ErrInvalidInput)
	require.ErrorIs(t, svc.MarkFactored(context.Background(), 999, day("2024-01-03")), ErrNotFound)
}
