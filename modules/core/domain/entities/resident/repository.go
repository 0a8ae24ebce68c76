package resident

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Resident, error)
	// GetByIDs bulk-loads residents; ids missing from the store are simply
	// absent from the result, not an error.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Resident, error)
	List(ctx context.Context, params *FindParams) ([]*Resident, error)
	Create(ctx context.Context, r *Resident) (*Resident, error)
	Update(ctx context.Context, r *Resident) error
}
