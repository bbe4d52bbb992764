package cashflow

import "time"

// ResolveEffectiveDate picks the single date under which a cluster's original
// invoice is placed in the ledger. Priority, first match wins:
//
//  1. Credit note present: the original's document-link emission date, the
//     link creation timestamp when the emission date is missing. A missing
//     link falls through instead of failing.
//  2. Factored with a factoring date: the factoring date fixes cash
//     realization contractually.
//  3. A recorded payment date, otherwise the document date.
//
// A zero return means no date could be resolved and the invoice must be
// excluded from the ledger.
func ResolveEffectiveDate(c Cluster, kind InvoiceKind, ix Indexes) (time.Time, DateReason) {
	inv := c.Original
	if inv == nil {
		return time.Time{}, ""
	}
	if len(c.CreditNotes) > 0 {
		if link, ok := ix.LinkFor(inv.ID, kind); ok {
			if !link.EmissionDate.IsZero() {
				return link.EmissionDate, ReasonCreditNote
			}
			if !link.CreatedAt.IsZero() {
				return link.CreatedAt, ReasonCreditNote
			}
		}
	}
	if inv.IsFactored && !inv.FactoringDate.IsZero() {
		return inv.FactoringDate, ReasonFactoring
	}
	if info := ix.MatchPayments(inv.ID, kind, inv.TotalAmount); !info.PaidAt.IsZero() {
		return info.PaidAt, ReasonPayment
	}
	if !inv.DocumentDate.IsZero() {
		return inv.DocumentDate, ReasonDocument
	}
	return time.Time{}, ""
}
