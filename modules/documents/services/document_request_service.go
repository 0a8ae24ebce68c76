package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/itszoriel/munlink-sub001/modules/documents/domain/entities/docrequest"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/eventbus"
)

type DocumentRequestService struct {
	repo      docrequest.Repository
	publisher eventbus.EventBus
}

func NewDocumentRequestService(repo docrequest.Repository, publisher eventbus.EventBus) *DocumentRequestService {
	return &DocumentRequestService{repo: repo, publisher: publisher}
}

func (s *DocumentRequestService) GetByID(ctx context.Context, id uuid.UUID) (*docrequest.DocumentRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DocumentRequestService) List(ctx context.Context, params *docrequest.FindParams) ([]*docrequest.DocumentRequest, error) {
	if params == nil {
		params = &docrequest.FindParams{}
	}
	return s.repo.List(ctx, params)
}

func (s *DocumentRequestService) Create(ctx context.Context, req *docrequest.DocumentRequest) (*docrequest.DocumentRequest, error) {
	if req == nil {
		return nil, errors.New("document request payload is required")
	}
	var created *docrequest.DocumentRequest
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.Create(txCtx, req)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create document request")
	}
	return created, nil
}

// Approve transitions a pending request to approved and, once the change is
// committed, publishes the event the notifications module fans out on.
func (s *DocumentRequestService) Approve(ctx context.Context, id uuid.UUID, notes string) (*docrequest.DocumentRequest, error) {
	req, err := s.transition(ctx, id, docrequest.StatusApproved, notes)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(docrequest.ApprovedEvent{Result: *req})
	return req, nil
}

// Reject transitions a pending request to rejected and publishes the event.
func (s *DocumentRequestService) Reject(ctx context.Context, id uuid.UUID, notes string) (*docrequest.DocumentRequest, error) {
	req, err := s.transition(ctx, id, docrequest.StatusRejected, notes)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(docrequest.RejectedEvent{Result: *req})
	return req, nil
}

func (s *DocumentRequestService) transition(ctx context.Context, id uuid.UUID, to docrequest.Status, notes string) (*docrequest.DocumentRequest, error) {
	var req *docrequest.DocumentRequest
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if req.Status != docrequest.StatusPending {
			return errors.Errorf("document request %s is %s, only pending requests can transition", id, req.Status)
		}
		req.Status = to
		req.Notes = notes
		return s.repo.Update(txCtx, req)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s document request", to)
	}
	return req, nil
}
