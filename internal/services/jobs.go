package services

import (
	"context"
	"log/slog"
)

// JobQueue hands work to the background workers. The asynq-backed
// implementation lives in the tasks package.
type JobQueue interface {
	EnqueueEmail(ctx context.Context, to, templateID string, data map[string]any) error
	EnqueueProfileImage(ctx context.Context, userID, key string) error
	EnqueueGeocode(ctx context.Context, propertyID string) error
}

// NoopQueue drops every job. Used when no Redis is configured and in tests.
type NoopQueue struct{}

func (NoopQueue) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]any) error {
	slog.Debug("Dropping email job", "to", to, "template", templateID)
	return nil
}

func (NoopQueue) EnqueueProfileImage(ctx context.Context, userID, key string) error {
	return nil
}

func (NoopQueue) EnqueueGeocode(ctx context.Context, propertyID string) error {
	return nil
}

// enqueueEmail logs and swallows queue failures; a missed email never fails the request.
func enqueueEmail(ctx context.Context, q JobQueue, to, templateID string, data map[string]any) {
	if q == nil || to == "" {
		return
	}
	if err := q.EnqueueEmail(ctx, to, templateID, data); err != nil {
		slog.Error("Failed to enqueue email", "to", to, "template", templateID, "error", err)
	}
}
