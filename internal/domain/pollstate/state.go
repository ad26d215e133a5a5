// internal/domain/pollstate/state.go
package pollstate

import "time"

// State is what the poll loop carries between cycles.
type State struct {
	Cursor         int64     // from_date for the next request, Unix seconds
	LastDiagnostic string    // last error message delivered to the chat
	LastSuccessAt  time.Time // zero until a cycle completes without error
	UpdatedAt      time.Time
}
