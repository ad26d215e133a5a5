package pollstate

import (
	"context"
	"time"
)

// Repository persists poll State between cycles and, for durable stores, across restarts.
type Repository interface {
	// Load returns the stored state. Stores that have nothing yet return ErrStateNotFound.
	Load(ctx context.Context) (*State, error)
	SaveCursor(ctx context.Context, cursor int64, successAt time.Time) error
	SaveDiagnostic(ctx context.Context, diagnostic string) error
}
