package service

import (
	"context"
	"sync"

	"github.com/medistore/medistore/internal/domain/auth"
)

// Registration drives the multi-step sign-up wizard. Input is sanitised as
// it is entered; a step is validated when leaving it forward.
type Registration struct {
	sessions *SessionStore

	mu         sync.Mutex
	form       auth.RegistrationForm
	step       int
	submitting bool
	errMsg     string
}

// NewRegistration creates a wizard at step 1 that signs in through sessions
// on submit.
func NewRegistration(sessions *SessionStore) *Registration {
	return &Registration{
		sessions: sessions,
		form:     auth.NewRegistrationForm(),
		step:     auth.StepOwner,
	}
}

// Set updates one field and clears the validation error.
func (r *Registration) Set(field auth.Field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.form.Set(field, value); err != nil {
		return err
	}
	r.errMsg = ""
	return nil
}

// Next validates the current step and advances if it is complete. It
// returns false and records the problem otherwise.
func (r *Registration) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg := r.form.ValidateStep(r.step); msg != "" {
		r.errMsg = msg
		return false
	}
	r.step = min(r.step+1, auth.StepReview)
	r.errMsg = ""
	return true
}

// Prev goes back one step.
func (r *Registration) Prev() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = max(r.step-1, auth.StepOwner)
	r.errMsg = ""
}

// SetStep jumps to step without validation, clamped to the wizard's range.
func (r *Registration) SetStep(step int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = min(max(step, auth.StepOwner), auth.StepReview)
	r.errMsg = ""
}

// SetError replaces the validation error; nil clears it.
func (r *Registration) SetError(msg *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg == nil {
		r.errMsg = ""
		return
	}
	r.errMsg = *msg
}

// Reset empties the form and returns to step 1.
func (r *Registration) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.form = auth.NewRegistrationForm()
	r.step = auth.StepOwner
	r.submitting = false
	r.errMsg = ""
}

// Step returns the current step.
func (r *Registration) Step() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

// Error returns the validation error, or "".
func (r *Registration) Error() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Submitting reports whether Submit is in progress.
func (r *Registration) Submitting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitting
}

// Form returns a copy of the form.
func (r *Registration) Form() auth.RegistrationForm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form
}

// StepData returns the section of the form edited at step, or nil for the
// review step.
func (r *Registration) StepData(step int) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch step {
	case auth.StepOwner:
		return r.form.Owner
	case auth.StepStore:
		return r.form.Store
	case auth.StepLicense:
		return r.form.License
	case auth.StepAddress:
		return r.form.Address
	default:
		return nil
	}
}

// Submit validates every step, then registers with password. An incomplete
// step becomes the current step with its error recorded. On success the
// wizard is reset; on failure the session's error is copied here.
func (r *Registration) Submit(ctx context.Context, password string) bool {
	r.mu.Lock()
	if r.submitting {
		r.mu.Unlock()
		return false
	}
	for step := auth.StepOwner; step < auth.StepReview; step++ {
		if msg := r.form.ValidateStep(step); msg != "" {
			r.step = step
			r.errMsg = msg
			r.mu.Unlock()
			return false
		}
	}
	req := r.form.RegisterRequest(password)
	r.submitting = true
	r.errMsg = ""
	r.mu.Unlock()

	ok := r.sessions.Register(ctx, req)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitting = false
	if !ok {
		r.errMsg = r.sessions.Snapshot().LastError
		return false
	}
	r.form = auth.NewRegistrationForm()
	r.step = auth.StepOwner
	return true
}
