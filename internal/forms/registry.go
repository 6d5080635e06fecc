package forms

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds open forms by token so a browser can come back to the
// same form across requests. Forms idle longer than the configured window
// are dropped on the next sweep.
type Registry struct {
	mu    sync.Mutex
	forms map[string]*Form
	idle  time.Duration
	now   func() time.Time
}

func NewRegistry(idle time.Duration) *Registry {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Registry{
		forms: map[string]*Form{},
		idle:  idle,
		now:   time.Now,
	}
}

// Open creates a form and registers it under a fresh token.
func (r *Registry) Open(schema Schema, mode Mode, recordID string, initial Values) *Form {
	form := New(schema, mode, recordID, initial)
	form.token = uuid.NewString()
	form.lastUsed = r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.forms[form.token] = form
	return form
}

// Get returns the open form for token.
func (r *Registry) Get(token string) (*Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	form, ok := r.forms[token]
	return form, ok
}

func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.forms, token)
}

// Sweep drops idle forms and returns how many were removed. Forms in the
// middle of a submit are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

func (r *Registry) sweepLocked() int {
	cutoff := r.now().Add(-r.idle)
	removed := 0
	for token, form := range r.forms {
		lastUsed, busy := form.idleSince()
		if busy || lastUsed.After(cutoff) {
			continue
		}
		delete(r.forms, token)
		removed++
	}
	return removed
}
