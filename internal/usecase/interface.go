package usecase

import (
	"context"

	"commission-reconciler/internal/domain"
)

// FeedRepository defines the interface for fetching the normalized tabular
// feeds. The usecase layer depends on this interface, not on a concrete
// implementation. Row-scoped parse failures come back as rejects, not
// errors: only an unusable feed returns an error.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go FeedRepository
type FeedRepository interface {
	GetOrders(ctx context.Context, path string) ([]domain.Order, []domain.Reject, error)
	GetCommissionLines(ctx context.Context, paths []string) ([]domain.CommissionLine, []domain.Reject, error)
}
