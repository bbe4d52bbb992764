package cashflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput marks caller mistakes (bad mode, bad window, bad id).
var ErrInvalidInput = errors.New("cashflow: invalid input")

// RepositoryPort defines data access for reconciliation runs.
type RepositoryPort interface {
	ListSaleInvoices(ctx context.Context) ([]Invoice, error)
	ListPurchaseInvoices(ctx context.Context) ([]Invoice, error)
	ListDocumentLinks(ctx context.Context) ([]DocumentLink, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	ListManualEntries(ctx context.Context, from, to time.Time) ([]ManualEntry, error)
	SetFactoring(ctx context.Context, invoiceID int64, date time.Time) error
	ClearFactoring(ctx context.Context, invoiceID int64) error
}

// StatsRecorder receives per-run reconciliation observations. The host wires
// this to Prometheus; the core only reports.
type StatsRecorder interface {
	RecordBuild(stats BuildStats, events int, elapsed time.Duration)
}

// Service runs the reconciliation pipeline over a repository snapshot.
type Service struct {
	repo    RepositoryPort
	cache   *Cache
	logger  *slog.Logger
	metrics StatsRecorder
	now     func() time.Time
}

// NewService builds a Service instance. Cache and metrics are optional.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger, metrics StatsRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, metrics: metrics, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

type sources struct {
	sales     []Invoice
	purchases []Invoice
	links     []DocumentLink
	payments  []Payment
	manual    []ManualEntry
}

// ComputeCashFlow fetches the five source collections, reconciles them and
// returns the chronological ledger with running balances. A nil window means
// the full range. Any fetch failure aborts the whole run; a partial ledger is
// never returned.
func (s *Service) ComputeCashFlow(ctx context.Context, window *Window, mode Mode) ([]LedgerEntry, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("cashflow: service not initialised")
	}
	switch mode {
	case ModeMonthOnly, ModeFullHistory:
	case "":
		mode = ModeMonthOnly
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if window != nil && !window.From.IsZero() && !window.To.IsZero() && window.To.Before(window.From) {
		return nil, fmt.Errorf("%w: window end precedes start", ErrInvalidInput)
	}

	src, err := s.fetchSources(ctx, window, mode)
	if err != nil {
		return nil, fmt.Errorf("cashflow: load sources: %w", err)
	}
	return s.reconcile(src, window, mode), nil
}

// fetchSources fans the five independent reads out and joins them. Sales,
// purchases and links are always fetched in full: credit-note linkage and
// paid status need complete history. Payments are deliberately unfiltered so
// full-payment checks never understate settlements outside the window.
func (s *Service) fetchSources(ctx context.Context, window *Window, mode Mode) (sources, error) {
	var src sources
	manualFrom, manualTo := time.Time{}, time.Time{}
	if mode == ModeMonthOnly && window != nil {
		manualFrom, manualTo = window.From, window.To
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src.sales, err = s.repo.ListSaleInvoices(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		src.purchases, err = s.repo.ListPurchaseInvoices(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		src.links, err = s.repo.ListDocumentLinks(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		src.payments, err = s.repo.ListPayments(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		src.manual, err = s.repo.ListManualEntries(ctx, manualFrom, manualTo)
		return err
	})
	if err := g.Wait(); err != nil {
		return sources{}, err
	}
	return src, nil
}

// reconcile is pure over its inputs: no I/O, deterministic, re-runnable.
func (s *Service) reconcile(src sources, window *Window, mode Mode) []LedgerEntry {
	start := s.now()

	ix := BuildIndexes(src.links, src.payments)
	saleClusters, saleOrphans := GroupDocuments(src.sales)
	purchaseClusters, purchaseOrphans := GroupDocuments(src.purchases)

	events, stats := BuildLedger(BuildInput{
		Sales:     saleClusters,
		Purchases: purchaseClusters,
		Manual:    src.manual,
		Indexes:   ix,
	})
	stats.OrphanCreditNotes = len(saleOrphans) + len(purchaseOrphans)

	if window != nil {
		visible := events[:0:0]
		for _, ev := range events {
			if window.Contains(ev.EffectiveDate) {
				visible = append(visible, ev)
			}
		}
		events = visible
	}

	var baseline float64
	if mode == ModeFullHistory && window != nil && !window.From.IsZero() {
		baseline = HistoricalBaseline(src.sales, src.purchases, src.manual, window.From)
	}
	entries := ComputeBalances(events, baseline)

	if stats.OrphanCreditNotes > 0 || stats.UnresolvedInvoices > 0 || stats.SkippedCreditNotes > 0 {
		s.logger.Warn("reconciliation degraded by omission",
			slog.Int("orphan_credit_notes", stats.OrphanCreditNotes),
			slog.Int("unresolved_invoices", stats.UnresolvedInvoices),
			slog.Int("skipped_credit_notes", stats.SkippedCreditNotes))
	}
	if s.metrics != nil {
		s.metrics.RecordBuild(stats, len(entries), s.now().Sub(start))
	}
	return entries
}

// CachedCashFlow serves ComputeCashFlow through the Redis result cache.
func (s *Service) CachedCashFlow(ctx context.Context, window *Window, mode Mode) ([]LedgerEntry, error) {
	if s.cache == nil {
		return s.ComputeCashFlow(ctx, window, mode)
	}
	key, err := s.cache.BuildKey(ctx, "cashflow", "ledger", string(mode), windowKey(window))
	if err != nil {
		s.logger.Warn("cache key", slog.Any("error", err))
		return s.ComputeCashFlow(ctx, window, mode)
	}
	var entries []LedgerEntry
	err = s.cache.FetchJSON(ctx, key, &entries, func(ctx context.Context) (interface{}, error) {
		return s.ComputeCashFlow(ctx, window, mode)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkFactored flags one sale invoice as factored at the given date. Callers
// must re-invoke ComputeCashFlow to see updated output; there is no push.
func (s *Service) MarkFactored(ctx context.Context, invoiceID int64, date time.Time) error {
	if invoiceID <= 0 {
		return fmt.Errorf("%w: invoice id required", ErrInvalidInput)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: factoring date required", ErrInvalidInput)
	}
	if err := s.repo.SetFactoring(ctx, invoiceID, date); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

// UnmarkFactored clears the factoring flag and date on one sale invoice.
func (s *Service) UnmarkFactored(ctx context.Context, invoiceID int64) error {
	if invoiceID <= 0 {
		return fmt.Errorf("%w: invoice id required", ErrInvalidInput)
	}
	if err := s.repo.ClearFactoring(ctx, invoiceID); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump", slog.Any("error", err))
	}
}

func windowKey(w *Window) string {
	if w == nil {
		return "all"
	}
	return w.From.Format("2006-01-02") + "_" + w.To.Format("2006-01-02")
}
