package forms

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phillip-england/cafesuite/internal/domain"
)

// MaxLogoBytes caps a selected logo file.
const MaxLogoBytes = 2 * 1024 * 1024

var allowedLogoTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var (
	ErrNotDirty   = errors.New("forms: nothing to save")
	ErrSubmitting = errors.New("forms: a submission is already in progress")
	ErrClosed     = errors.New("forms: form is closed")
	ErrNoLogo     = errors.New("forms: this form does not accept a logo")
)

// ValidationError is returned by Submit when field rules fail. No request
// was made.
type ValidationError struct {
	Fields domain.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// LogoError explains why a selected file was discarded.
type LogoError struct {
	Reason string
}

func (e *LogoError) Error() string { return e.Reason }

// Logo is an accepted file waiting for the next submit.
type Logo struct {
	Filename string
	MIME     string
	Data     []byte
}

// UploadFunc stores a logo and returns its path for logo_url.
type UploadFunc func(ctx context.Context, data []byte, filename string) (string, error)

// SaveFunc performs the create or update call with the validated values.
type SaveFunc func(ctx context.Context, values Values) error

// Form is one open record form. It is safe for concurrent use; requests that
// race on the same form see a consistent state.
type Form struct {
	mu sync.Mutex

	token    string
	schema   Schema
	mode     Mode
	recordID string

	original Values
	values   Values
	logo     *Logo
	errors   domain.FieldErrors
	state    State
	closed   bool
	lastUsed time.Time

	// OnTransition, when set, is called after every state change while the
	// form lock is held. It must not call back into the form.
	OnTransition func(from, to State)
}

// New returns a pristine form seeded with initial values. Fields missing
// from initial start empty.
func New(schema Schema, mode Mode, recordID string, initial Values) *Form {
	values := Values{}
	for _, field := range schema.Fields {
		values[field.Name] = initial[field.Name]
	}
	return &Form{
		schema:   schema,
		mode:     mode,
		recordID: recordID,
		original: values.clone(),
		values:   values,
		state:    Pristine,
		lastUsed: time.Now(),
	}
}

func (f *Form) Token() string    { return f.token }
func (f *Form) Schema() Schema   { return f.schema }
func (f *Form) Mode() Mode       { return f.mode }
func (f *Form) RecordID() string { return f.recordID }

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns a copy of the current input.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.clone()
}

func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// Errors returns the field messages from the last rejected submit.
func (f *Form) Errors() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := domain.FieldErrors{}
	for key, value := range f.errors {
		out[key] = value
	}
	return out
}

// PendingLogo returns the accepted file that will upload on submit.
func (f *Form) PendingLogo() (Logo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logo == nil {
		return Logo{}, false
	}
	return Logo{Filename: f.logo.Filename, MIME: f.logo.MIME}, true
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	return f.State() == Dirty
}

// GuardArmed reports whether leaving the page should warn about unsaved
// changes.
func (f *Form) GuardArmed() bool {
	return f.State() == Dirty
}

// Set records a field edit. A value that differs from the current one
// moves the form to Dirty.
func (f *Form) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if !f.schema.has(name) {
		return fmt.Errorf("forms: unknown field %q", name)
	}
	if f.values[name] == value {
		return nil
	}
	f.values[name] = value
	delete(f.errors, name)
	f.markDirty()
	return nil
}

// Apply sets every schema field present in values.
func (f *Form) Apply(values Values) error {
	for _, field := range f.schema.Fields {
		value, ok := values[field.Name]
		if !ok {
			continue
		}
		if err := f.Set(field.Name, value); err != nil {
			return err
		}
	}
	return nil
}

// Touch marks the form dirty after a change event that left the values
// as they were.
func (f *Form) Touch() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.markDirty()
	return nil
}

// SelectLogo checks a chosen file. Accepted files are kept for the next
// submit and dirty the form; rejected files are discarded with a
// *LogoError and the current logo stays as it was.
func (f *Form) SelectLogo(data []byte, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if !f.schema.AllowsLogo {
		return ErrNoLogo
	}
	if len(data) == 0 {
		return &LogoError{Reason: "Please choose an image file"}
	}
	if len(data) > MaxLogoBytes {
		return &LogoError{Reason: "Logo must be 2MB or smaller"}
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedLogoTypes...) {
		return &LogoError{Reason: "Logo must be a JPEG, PNG, GIF or WebP image"}
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == "/" || name == "" {
		name = "logo" + mtype.Extension()
	}
	f.logo = &Logo{Filename: name, MIME: mtype.String(), Data: append([]byte(nil), data...)}
	f.markDirty()
	return nil
}

// NeedsLeaveConfirm reports whether navigating away must be confirmed: the
// form is dirty and something actually differs from what it opened with.
func (f *Form) NeedsLeaveConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == Dirty && f.changedLocked()
}

// Discard abandons the form. Further edits and submits fail with ErrClosed.
// A form that is submitting cannot be discarded.
func (f *Form) Discard() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitting
	}
	f.closed = true
	f.logo = nil
	return nil
}

// Submit validates the values and, when they pass, uploads any pending logo
// and calls save. The calls run on a context detached from ctx's
// cancellation so a client that goes away does not abort a save in flight.
// On failure the form returns to Dirty with its values intact.
func (f *Form) Submit(ctx context.Context, upload UploadFunc, save SaveFunc) error {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.state != Dirty {
		f.mu.Unlock()
		return ErrNotDirty
	}
	if errs := f.schema.Validate(f.values); len(errs) > 0 {
		f.errors = errs
		f.mu.Unlock()
		return &ValidationError{Fields: errs}
	}
	f.errors = nil
	f.move(Submitting)
	values := f.values.clone()
	if f.schema.prepare != nil {
		f.schema.prepare(f.original, values)
	}
	logo := f.logo
	f.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	err := f.run(ctx, values, logo, upload, save)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()
	if err != nil {
		f.move(Failed)
		f.move(Dirty)
		return err
	}
	f.move(Succeeded)
	f.logo = nil
	return nil
}

func (f *Form) run(ctx context.Context, values Values, logo *Logo, upload UploadFunc, save SaveFunc) error {
	if logo != nil {
		if upload == nil {
			return errors.New("forms: no uploader for pending logo")
		}
		path, err := upload(ctx, logo.Data, logo.Filename)
		if err != nil {
			return fmt.Errorf("upload logo: %w", err)
		}
		values["logo_url"] = path

		// The stored path replaces the field so a retry after a failed save
		// does not upload the same file again.
		f.mu.Lock()
		f.values["logo_url"] = path
		if f.logo == logo {
			f.logo = nil
		}
		f.mu.Unlock()
	}
	return save(ctx, values)
}

// changedLocked reports whether the values differ from the ones the form
// opened with.
func (f *Form) changedLocked() bool {
	if f.logo != nil {
		return true
	}
	for key, value := range f.values {
		if f.original[key] != value {
			return true
		}
	}
	return false
}

func (f *Form) editable() error {
	if f.closed {
		return ErrClosed
	}
	if f.state == Submitting {
		return ErrSubmitting
	}
	if f.state == Succeeded {
		return ErrClosed
	}
	f.lastUsed = time.Now()
	return nil
}

func (f *Form) markDirty() {
	if f.state == Pristine {
		f.move(Dirty)
	}
}

func (f *Form) move(to State) {
	from := f.state
	if !canMove(from, to) {
		panic(fmt.Sprintf("forms: illegal transition %s -> %s", from, to))
	}
	f.state = to
	if f.OnTransition != nil {
		f.OnTransition(from, to)
	}
}

func (f *Form) idleSince() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUsed, f.state == Submitting
}
