package cashflow

import "time"

// Indexes holds prebuilt lookup maps for link and payment matching, replacing
// the O(n·m) scan-and-find joins with a pure function over indices.
type Indexes struct {
	linkBySale     map[int64]DocumentLink
	linkByPurchase map[int64]DocumentLink
	paymentsByLink map[int64][]Payment
}

// BuildIndexes constructs the matching indices for one reconciliation run.
func BuildIndexes(links []DocumentLink, payments []Payment) Indexes {
	ix := Indexes{
		linkBySale:     make(map[int64]DocumentLink, len(links)),
		linkByPurchase: make(map[int64]DocumentLink, len(links)),
		paymentsByLink: make(map[int64][]Payment, len(payments)),
	}
	for _, link := range links {
		if link.SaleInvoiceID != 0 {
			if _, ok := ix.linkBySale[link.SaleInvoiceID]; !ok {
				ix.linkBySale[link.SaleInvoiceID] = link
			}
		}
		if link.PurchaseInvoiceID != 0 {
			if _, ok := ix.linkByPurchase[link.PurchaseInvoiceID]; !ok {
				ix.linkByPurchase[link.PurchaseInvoiceID] = link
			}
		}
	}
	for _, p := range payments {
		ix.paymentsByLink[p.DocumentLinkID] = append(ix.paymentsByLink[p.DocumentLinkID], p)
	}
	return ix
}

// LinkFor resolves the document link for an invoice, if any.
func (ix Indexes) LinkFor(invoiceID int64, kind InvoiceKind) (DocumentLink, bool) {
	if kind == KindPurchase {
		link, ok := ix.linkByPurchase[invoiceID]
		return link, ok
	}
	link, ok := ix.linkBySale[invoiceID]
	return link, ok
}

// PaymentInfo is the matcher output: a representative payment date and the
// full-payment status. A zero PaidAt means no payment was recorded.
type PaymentInfo struct {
	PaidAt    time.Time
	FullyPaid bool
}

// MatchPayments links an invoice to its payments. The representative date is
// the first matched payment; full settlement may happen later in an
// installment plan. Fully paid holds iff the summed amounts reach the invoice
// total, compared directly on float64.
func (ix Indexes) MatchPayments(invoiceID int64, kind InvoiceKind, invoiceTotal float64) PaymentInfo {
	link, ok := ix.LinkFor(invoiceID, kind)
	if !ok {
		return PaymentInfo{}
	}
	payments := ix.paymentsByLink[link.ID]
	if len(payments) == 0 {
		return PaymentInfo{}
	}
	var total float64
	for _, p := range payments {
		total += p.Amount
	}
	return PaymentInfo{
		PaidAt:    payments[0].PaidAt,
		FullyPaid: total >= invoiceTotal,
	}
}
