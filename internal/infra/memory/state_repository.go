// Package memory holds in-process implementations of domain repositories.
package memory

import (
	"context"
	"sync"
	"time"

	"homework_status_bot/internal/domain/pollstate"
)

// StateRepository keeps poll state in memory. It is lost on restart.
type StateRepository struct {
	mu    sync.RWMutex
	state *pollstate.State
	now   func() time.Time
}

func NewStateRepository() *StateRepository {
	return &StateRepository{now: time.Now}
}

func (r *StateRepository) Load(_ context.Context) (*pollstate.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state == nil {
		return nil, pollstate.ErrStateNotFound
	}
	st := *r.state
	return &st, nil
}

func (r *StateRepository) SaveCursor(_ context.Context, cursor int64, successAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.ensure()
	st.Cursor = cursor
	st.LastSuccessAt = successAt
	st.UpdatedAt = r.now()
	return nil
}

func (r *StateRepository) SaveDiagnostic(_ context.Context, diagnostic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.ensure()
	st.LastDiagnostic = diagnostic
	st.UpdatedAt = r.now()
	return nil
}

// ensure must be called with mu held.
func (r *StateRepository) ensure() *pollstate.State {
	if r.state == nil {
		r.state = &pollstate.State{}
	}
	return r.state
}
