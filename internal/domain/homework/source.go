package homework

import "context"

// Source fetches raw homework status updates since fromDate (Unix seconds).
// The returned value is the decoded JSON body, not yet validated.
type Source interface {
	GetHomeworkStatuses(ctx context.Context, fromDate int64) (any, error)
}
