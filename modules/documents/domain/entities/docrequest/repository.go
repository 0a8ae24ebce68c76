package docrequest

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*DocumentRequest, error)
	List(ctx context.Context, params *FindParams) ([]*DocumentRequest, error)
	Create(ctx context.Context, r *DocumentRequest) (*DocumentRequest, error)
	Update(ctx context.Context, r *DocumentRequest) error
}
