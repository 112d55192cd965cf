package repository

import (
	"context"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// WebhookEventRepository stores gateway callbacks and owns the idempotency
// discipline around the processed marker.
type WebhookEventRepository interface {
	// Save inserts the event row, ignoring the insert when the event id is
	// already present (duplicate delivery).
	Save(ctx context.Context, event *model.WebhookEvent) error

	Get(ctx context.Context, eventID string) (*model.WebhookEvent, error)

	// Claim conditionally transitions pending/failed to processing and
	// increments the attempt counter. Returns false when another delivery
	// already completed or currently holds the claim, in which case no side
	// effects may be applied for this delivery.
	Claim(ctx context.Context, eventID string) (bool, error)

	// MarkCompleted flips the claimed row to completed and sets ProcessedAt.
	MarkCompleted(ctx context.Context, eventID string) error

	// MarkFailed records the handler error and schedules a retry window.
	MarkFailed(ctx context.Context, eventID string, handlerErr error) error
}
