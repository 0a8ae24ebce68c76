package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
)

type ResidentService struct {
	repo resident.Repository
}

func NewResidentService(repo resident.Repository) *ResidentService {
	return &ResidentService{repo: repo}
}

func (s *ResidentService) GetByID(ctx context.Context, id uuid.UUID) (*resident.Resident, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ResidentService) List(ctx context.Context, params *resident.FindParams) ([]*resident.Resident, error) {
	if params == nil {
		params = &resident.FindParams{}
	}
	return s.repo.List(ctx, params)
}

func (s *ResidentService) Register(ctx context.Context, r *resident.Resident) (*resident.Resident, error) {
	if r == nil {
		return nil, errors.New("resident payload is required")
	}
	var created *resident.Resident
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.Create(txCtx, r)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "register resident")
	}
	return created, nil
}

func (s *ResidentService) Update(ctx context.Context, r *resident.Resident) error {
	if r == nil {
		return errors.New("resident payload is required")
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Update(txCtx, r)
	})
}
