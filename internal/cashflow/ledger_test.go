package cashflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLedgerBareSaleInvoice(t *testing.T) {
	// Scenario A: no payment, no factoring, no credit note.
	inv := saleInvoice(1, "INV-1", 1000, "2024-01-05")
	events, stats := BuildLedger(BuildInput{
		Sales:   []Cluster{{Original: &inv}},
		Indexes: BuildIndexes(nil, nil),
	})

	require.Len(t, events, 1)
	require.Equal(t, DirectionIncome, events[0].Direction)
	require.InDelta(t, 1000, events[0].Amount, 0)
	require.Equal(t, day("2024-01-05"), events[0].EffectiveDate)
	require.False(t, events[0].FullyPaid)
	require.Zero(t, stats.UnresolvedInvoices)
}

func TestBuildLedgerFullyCancelledCluster(t *testing.T) {
	// Scenario B: invoice 1000 fully cancelled by one credit note.
	clusters, _ := GroupDocuments([]Invoice{
		saleInvoice(1, "INV-2", 1000, "2024-01-05"),
		creditNote(2, "NC-1", "INV-2", 1000, "2024-02-10"),
	})
	ix := BuildIndexes(
		[]DocumentLink{{ID: 10, SaleInvoiceID: 1, EmissionDate: day("2024-02-12")}},
		[]Payment{{ID: 1, DocumentLinkID: 10, PaidAt: day("2024-01-20"), Amount: 1000}},
	)
	events, _ := BuildLedger(BuildInput{Sales: clusters, Indexes: ix})

	require.Len(t, events, 2)

	// The invoice event keeps the full original total, dated at the link
	// emission date, and is never "paid" once cancelled (P1).
	require.Equal(t, DirectionIncome, events[0].Direction)
	require.InDelta(t, 1000, events[0].Amount, 0)
	require.Equal(t, day("2024-02-12"), events[0].EffectiveDate)
	require.False(t, events[0].FullyPaid)
	require.Contains(t, events[0].Description, "anulada")

	// The credit note is its own expense event at its own document date.
	require.Equal(t, DirectionExpense, events[1].Direction)
	require.InDelta(t, 1000, events[1].Amount, 0)
	require.Equal(t, day("2024-02-10"), events[1].EffectiveDate)
	require.Equal(t, "INV-2-NC1", events[1].DocumentLabel)
}

func TestBuildLedgerSkipsCreditNoteWithoutDate(t *testing.T) {
	inv := saleInvoice(1, "INV-1", 1000, "2024-01-05")
	nc := creditNote(2, "NC-1", "INV-1", 100, "2024-02-10")
	ncNoDate := Invoice{
		ID: 3, Folio: "NC-2", DocumentTypeCode: CreditNoteTypeCode,
		ReferencedFolio: "INV-1", TotalAmount: 50,
	}

	cluster := Cluster{Original: &inv, CreditNotes: []Invoice{nc, ncNoDate}}
	ix := BuildIndexes([]DocumentLink{{ID: 10, SaleInvoiceID: 1, EmissionDate: day("2024-02-12")}}, nil)

	events, stats := BuildLedger(BuildInput{Sales: []Cluster{cluster}, Indexes: ix})
	require.Len(t, events, 2)
	require.Equal(t, 1, stats.SkippedCreditNotes)
}

func TestBuildLedgerUnresolvedInvoiceIsExcluded(t *testing.T) {
	inv := Invoice{ID: 1, Folio: "INV-1", DocumentTypeCode: "33", TotalAmount: 100}
	events, stats := BuildLedger(BuildInput{
		Sales:   []Cluster{{Original: &inv}},
		Indexes: BuildIndexes(nil, nil),
	})
	require.Empty(t, events)
	require.Equal(t, 1, stats.UnresolvedInvoices)
}

func TestBuildLedgerPurchaseIsExpense(t *testing.T) {
	inv := saleInvoice(9, "C-100", 750, "2024-01-10")
	ix := BuildIndexes(
		[]DocumentLink{{ID: 20, PurchaseInvoiceID: 9}},
		[]Payment{{ID: 1, DocumentLinkID: 20, PaidAt: day("2024-01-25"), Amount: 750}},
	)
	events, _ := BuildLedger(BuildInput{Purchases: []Cluster{{Original: &inv}}, Indexes: ix})

	require.Len(t, events, 1)
	require.Equal(t, DirectionExpense, events[0].Direction)
	require.True(t, events[0].FullyPaid)
	require.Equal(t, day("2024-01-25"), events[0].EffectiveDate)
	require.Equal(t, KindPurchase, events[0].SourceKind)
}

func TestBuildLedgerManualEntries(t *testing.T) {
	events, _ := BuildLedger(BuildInput{
		Manual: []ManualEntry{
			{ID: 5, Kind: DirectionIncome, Description: "Aporte socio", Amount: 2000, EntryDate: day("2024-01-03")},
			{ID: 6, Kind: DirectionExpense, Description: "Arriendo", Amount: 500, EntryDate: day("2024-01-05")},
		},
		Indexes: BuildIndexes(nil, nil),
	})
	require.Len(t, events, 2)
	require.Equal(t, "Manual-5", events[0].DocumentLabel)
	require.Equal(t, DirectionIncome, events[0].Direction)
	require.Equal(t, "Manual-6", events[1].DocumentLabel)
	require.Equal(t, DirectionExpense, events[1].Direction)
}

func TestBuildLedgerAmountsAreNonNegative(t *testing.T) {
	// P5: sign is carried only by direction, even for negative inputs.
	inv := saleInvoice(1, "INV-1", -1000, "2024-01-05")
	events, _ := BuildLedger(BuildInput{
		Sales: []Cluster{{Original: &inv}},
		Manual: []ManualEntry{
			{ID: 7, Kind: DirectionExpense, Description: "Ajuste", Amount: -300, EntryDate: day("2024-01-08")},
		},
		Indexes: BuildIndexes(nil, nil),
	})
	for _, ev := range events {
		require.GreaterOrEqual(t, ev.Amount, 0.0)
	}
}
