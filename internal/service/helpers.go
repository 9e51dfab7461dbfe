package service

import (
	"context"
	"database/sql"
	"errors"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// cacheInvalidator drops cached aggregates after writes that change them.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

func invalidate(ctx context.Context, inv cacheInvalidator) {
	if inv != nil {
		inv.Invalidate(ctx)
	}
}
