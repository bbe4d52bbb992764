package manual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries map[int64]*Entry
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[int64]*Entry)}
}

func (r *memoryRepo) CreateEntry(ctx context.Context, input EntryInput) (*Entry, error) {
	r.nextID++
	e := &Entry{
		ID:          r.nextID,
		Kind:        input.Kind,
		Description: input.Description,
		Amount:      input.Amount,
		EntryDate:   input.EntryDate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.entries[e.ID] = e
	return e, nil
}

func (r *memoryRepo) ListEntries(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	var out []Entry
	for _, e := range r.entries {
		if req.Kind != "" && e.Kind != req.Kind {
			continue
		}
		if !req.From.IsZero() && e.EntryDate.Before(req.From) {
			continue
		}
		if !req.To.IsZero() && e.EntryDate.After(req.To) {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (r *memoryRepo) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreateEntry(t *testing.T) {
	svc := NewService(newMemoryRepo())

	entry, err := svc.CreateEntry(context.Background(), EntryInput{
		Kind:        KindExpense,
		Description: "Arriendo oficina",
		Amount:      350000,
		EntryDate:   date("2024-01-05"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.ID)
	require.Equal(t, KindExpense, entry.Kind)
}

func TestCreateEntryValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	cases := []EntryInput{
		{Kind: "TRANSFER", Description: "x", Amount: 10, EntryDate: date("2024-01-05")},
		{Kind: KindIncome, Description: "", Amount: 10, EntryDate: date("2024-01-05")},
		{Kind: KindIncome, Description: "x", Amount: 0, EntryDate: date("2024-01-05")},
		{Kind: KindIncome, Description: "x", Amount: -5, EntryDate: date("2024-01-05")},
		{Kind: KindIncome, Description: "x", Amount: 10},
	}
	for _, input := range cases {
		_, err := svc.CreateEntry(ctx, input)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestListEntriesFilters(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, EntryInput{Kind: KindIncome, Description: "Aporte", Amount: 100, EntryDate: date("2024-01-02")})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, EntryInput{Kind: KindExpense, Description: "Arriendo", Amount: 200, EntryDate: date("2024-02-10")})
	require.NoError(t, err)

	entries, total, err := svc.ListEntries(ctx, ListRequest{Kind: KindIncome})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Aporte", entries[0].Description)

	_, total, err = svc.ListEntries(ctx, ListRequest{From: date("2024-02-01"), To: date("2024-02-28")})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestListEntriesRejectsBadRequest(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, _, err := svc.ListEntries(ctx, ListRequest{Kind: "TRANSFER"})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.ListEntries(ctx, ListRequest{From: date("2024-02-01"), To: date("2024-01-01")})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, EntryInput{Kind: KindIncome, Description: "Aporte", Amount: 100, EntryDate: date("2024-01-02")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))
	require.ErrorIs(t, svc.DeleteEntry(ctx, entry.ID), ErrNotFound)
	require.ErrorIs(t, svc.DeleteEntry(ctx, 0), ErrValidation)
}
