package manual

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps input validation failures.
var ErrValidation = errors.New("manual: invalid input")

// RepositoryPort defines data access methods for manual entries.
type RepositoryPort interface {
	CreateEntry(ctx context.Context, input EntryInput) (*Entry, error)
	ListEntries(ctx context.Context, req ListRequest) ([]Entry, int, error)
	DeleteEntry(ctx context.Context, id int64) error
}

// Service handles manual-entry business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreateEntry validates and stores a new manual movement.
func (s *Service) CreateEntry(ctx context.Context, input EntryInput) (*Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.CreateEntry(ctx, input)
}

// ListEntries returns filtered entries and the unpaginated total.
func (s *Service) ListEntries(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	if req.Kind != "" && req.Kind != KindIncome && req.Kind != KindExpense {
		return nil, 0, fmt.Errorf("%w: unknown kind %q", ErrValidation, req.Kind)
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return nil, 0, fmt.Errorf("%w: range end precedes start", ErrValidation)
	}
	return s.repo.ListEntries(ctx, req)
}

// DeleteEntry removes one manual movement.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: entry id required", ErrValidation)
	}
	return s.repo.DeleteEntry(ctx, id)
}
