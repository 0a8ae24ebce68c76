package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/itszoriel/munlink-sub001/pkg/constants"
)

var ErrNoTenantID = errors.New("no tenant id found in context")

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	v := ctx.Value(constants.TenantIDKey)
	if v == nil {
		return uuid.Nil, ErrNoTenantID
	}
	return v.(uuid.UUID), nil
}
