package cashflow

import (
	"sort"
	"time"
)

// ComputeBalances sorts events ascending by effective date (stable, ties keep
// emission order) and scans them with a running accumulator seeded from
// baseline. The balance is always recomputed in full; it is never patched
// incrementally.
func ComputeBalances(events []CashFlowEvent, baseline float64) []LedgerEntry {
	ordered := make([]CashFlowEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EffectiveDate.Before(ordered[j].EffectiveDate)
	})

	entries := make([]LedgerEntry, len(ordered))
	balance := baseline
	for i, ev := range ordered {
		if ev.Direction == DirectionIncome {
			balance += ev.Amount
		} else {
			balance -= ev.Amount
		}
		entries[i] = LedgerEntry{CashFlowEvent: ev, RunningBalance: balance}
	}
	return entries
}

// HistoricalBaseline nets every record strictly dated before cutoff into one
// signed accumulated total. It runs the same grouping and netting path as the
// visible window (sales and purchases placed by document date, manual entries
// by their own date), so the baseline and the window never diverge
// structurally. Purchases always subtract; there is no document-type sign
// table.
func HistoricalBaseline(sales, purchases []Invoice, manual []ManualEntry, cutoff time.Time) float64 {
	var total float64
	total += netClusters(filterBefore(sales, cutoff), +1)
	total += netClusters(filterBefore(purchases, cutoff), -1)
	for _, m := range manual {
		if m.EntryDate.IsZero() || !m.EntryDate.Before(cutoff) {
			continue
		}
		if m.Kind == DirectionIncome {
			total += m.Amount
		} else {
			total -= m.Amount
		}
	}
	return total
}

func filterBefore(invoices []Invoice, cutoff time.Time) []Invoice {
	kept := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.DocumentDate.IsZero() || !inv.DocumentDate.Before(cutoff) {
			continue
		}
		kept = append(kept, inv)
	}
	return kept
}

func netClusters(invoices []Invoice, sign float64) float64 {
	clusters, _ := GroupDocuments(invoices)
	var total float64
	for _, c := range clusters {
		total += sign * c.NetAmount
	}
	return total
}
