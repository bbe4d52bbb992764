package cashflow

import (
	"fmt"
	"math"
)

// BuildStats counts the records the builder degraded by omission. The core
// never errors on data-shape anomalies; the host logs and counts these.
type BuildStats struct {
	OrphanCreditNotes  int
	UnresolvedInvoices int
	SkippedCreditNotes int
}

// BuildInput carries the grouped and indexed sources for one ledger build.
type BuildInput struct {
	Sales     []Cluster
	Purchases []Cluster
	Manual    []ManualEntry
	Indexes   Indexes
}

// BuildLedger merges sale clusters, purchase clusters and manual entries into
// one unordered list of signed cash-flow events. Events are emitted in
// source-list order; no dedup across sources is performed.
func BuildLedger(in BuildInput) ([]CashFlowEvent, BuildStats) {
	var stats BuildStats
	events := make([]CashFlowEvent, 0, len(in.Sales)+len(in.Purchases)+len(in.Manual))

	events = appendClusterEvents(events, &stats, in.Sales, KindSale, in.Indexes)
	events = appendClusterEvents(events, &stats, in.Purchases, KindPurchase, in.Indexes)

	for _, m := range in.Manual {
		events = append(events, CashFlowEvent{
			EffectiveDate: m.EntryDate,
			Direction:     m.Kind,
			Description:   m.Description,
			Amount:        math.Abs(m.Amount),
			DocumentLabel: fmt.Sprintf("Manual-%d", m.ID),
		})
	}
	return events, stats
}

func appendClusterEvents(events []CashFlowEvent, stats *BuildStats, clusters []Cluster, kind InvoiceKind, ix Indexes) []CashFlowEvent {
	base := DirectionIncome
	counter := DirectionExpense
	docWord := "Factura venta"
	if kind == KindPurchase {
		base = DirectionExpense
		counter = DirectionIncome
		docWord = "Factura compra"
	}

	for _, c := range clusters {
		date, reason := ResolveEffectiveDate(c, kind, ix)
		if date.IsZero() {
			stats.UnresolvedInvoices++
			continue
		}
		inv := c.Original
		info := ix.MatchPayments(inv.ID, kind, inv.TotalAmount)

		desc := fmt.Sprintf("%s %s %s", docWord, inv.BucketKey(), inv.CounterpartyName)
		if c.FullyCancelled {
			desc += " (anulada)"
		}
		events = append(events, CashFlowEvent{
			EffectiveDate: date,
			Direction:     base,
			Description:   desc,
			// The original's full total; credit notes net out through
			// their own counter events below.
			Amount:          math.Abs(inv.TotalAmount),
			DocumentLabel:   inv.BucketKey(),
			FullyPaid:       info.FullyPaid && !c.FullyCancelled,
			DateReason:      reason,
			SourceInvoiceID: inv.ID,
			SourceKind:      kind,
		})

		for i, nc := range c.CreditNotes {
			if nc.DocumentDate.IsZero() {
				stats.SkippedCreditNotes++
				continue
			}
			events = append(events, CashFlowEvent{
				EffectiveDate:   nc.DocumentDate,
				Direction:       counter,
				Description:     fmt.Sprintf("Nota de crédito %s %s", nc.BucketKey(), nc.CounterpartyName),
				Amount:          math.Abs(nc.TotalAmount),
				DocumentLabel:   fmt.Sprintf("%s-NC%d", inv.BucketKey(), i+1),
				DateReason:      ReasonDocument,
				SourceInvoiceID: nc.ID,
				SourceKind:      kind,
			})
		}
	}
	return events
}
