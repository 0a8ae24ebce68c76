package middleware

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/pkg/constants"
)

func contextWithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, entry)
}

// UseLogger returns the request-scoped logger, or nil when absent.
func UseLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return entry
	}
	return nil
}
