package services

import (
	"context"
	"errors"
	"math"

	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func parseID(raw, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidArgument("invalid " + field)
	}
	return id, nil
}

// storeErr maps repository sentinels onto the error taxonomy. notFound is the
// client message used for repository.ErrNotFound.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("already exists")
	default:
		return apperr.Internal(err)
	}
}

// normalizePage clamps page and limit; limit falls back to def and is capped at max.
func normalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

// pageOffset saturates instead of overflowing, so a huge page is just empty.
func pageOffset(page, limit int) int64 {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return math.MaxInt64
	}
	return int64(page-1) * int64(limit)
}

func totalPages(total int64, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// publish is best effort: a failing broker never fails the request.
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn("event publish failed",
			zap.String("type", e.Type),
			zap.String("aggregate_id", e.AggregateID),
			zap.Error(err))
	}
}
