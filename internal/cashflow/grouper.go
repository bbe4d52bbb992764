package cashflow

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// GroupDocuments clusters invoices with the credit notes that reference them
// by folio. Originals are bucketed first so input order does not matter.
// Credit notes whose folio never matches an original are data
// inconsistencies: their buckets are dropped from the output and the notes
// returned separately so the caller can observe them.
func GroupDocuments(invoices []Invoice) ([]Cluster, []Invoice) {
	buckets := make(map[string]*Cluster, len(invoices))
	order := make([]string, 0, len(invoices))

	for i := range invoices {
		inv := invoices[i]
		if inv.IsCreditNote() {
			continue
		}
		key := inv.BucketKey()
		if _, ok := buckets[key]; ok {
			// Duplicate folio. Keep the first original, shunt the
			// duplicate into its own synthetic bucket.
			key = "doc:" + uuid.NewString()
		}
		buckets[key] = &Cluster{Original: &invoices[i]}
		order = append(order, key)
	}

	for i := range invoices {
		inv := invoices[i]
		if !inv.IsCreditNote() {
			continue
		}
		bucket, ok := buckets[inv.ReferencedFolio]
		if !ok {
			bucket = &Cluster{}
			buckets[inv.ReferencedFolio] = bucket
			order = append(order, inv.ReferencedFolio)
		}
		bucket.CreditNotes = append(bucket.CreditNotes, inv)
	}

	clusters := make([]Cluster, 0, len(order))
	var orphans []Invoice
	for _, key := range order {
		bucket := buckets[key]
		if bucket.Original == nil {
			orphans = append(orphans, bucket.CreditNotes...)
			continue
		}
		net := math.Abs(bucket.Original.TotalAmount)
		for _, nc := range bucket.CreditNotes {
			net -= math.Abs(nc.TotalAmount)
		}
		bucket.NetAmount = net
		bucket.FullyCancelled = net <= 0
		clusters = append(clusters, *bucket)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Original.DocumentDate.Before(clusters[j].Original.DocumentDate)
	})
	return clusters, orphans
}
