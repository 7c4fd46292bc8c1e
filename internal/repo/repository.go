package repo

import (
	"context"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// StatusStore keeps the latest observation per watched location.
type StatusStore interface {
	Record(ctx context.Context, o domain.Observation) error
	Latest(ctx context.Context) ([]domain.Observation, error)
}
