// Package declaration implements the five-step declaration form: the
// accumulating record, step navigation, document attachment rules and the
// final submission.
//
// A Workflow is not safe for concurrent use. Callers that share one across
// goroutines (the HTTP session manager does) must serialise access.
package declaration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Workflow owns one in-progress declaration.
type Workflow struct {
	step   Step
	record Record

	store SessionStore
	now   func() time.Time
	newID func() string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithStore hands submitted records to store.
func WithStore(store SessionStore) Option {
	return func(w *Workflow) { w.store = store }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithIDGenerator overrides the document id generator.
func WithIDGenerator(gen func() string) Option {
	return func(w *Workflow) { w.newID = gen }
}

// New starts an empty declaration at step 1.
func New(opts ...Option) *Workflow {
	w := &Workflow{
		step:   FirstStep,
		record: NewRecord(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Step returns the current position.
func (w *Workflow) Step() Step {
	return w.step
}

// Record returns a copy of the accumulated record.
func (w *Workflow) Record() Record {
	return w.record.Clone()
}

// Reset discards the record and returns to step 1.
func (w *Workflow) Reset() {
	w.step = FirstStep
	w.record = NewRecord()
}

// Advance moves forward one step. It is a no-op on the last step and never
// validates the fields of the step being left.
func (w *Workflow) Advance() Step {
	if w.step < LastStep {
		w.step++
	}
	return w.step
}

// Retreat moves back one step. It is a no-op on the first step.
func (w *Workflow) Retreat() Step {
	if w.step > FirstStep {
		w.step--
	}
	return w.step
}

// GoTo jumps to step s. It panics when s is out of range.
func (w *Workflow) GoTo(s Step) {
	if !s.Valid() {
		panic(outOfRange(s))
	}
	w.step = s
}

// SetField replaces one scalar field. It panics on an unknown field name;
// callers handling untrusted input check IsField first.
func (w *Workflow) SetField(name Field, value string) {
	p := w.record.field(name)
	if p == nil {
		panic(fmt.Sprintf("declaration: unknown field %q", string(name)))
	}
	*p = value
}

// AddCertification appends name unless it is blank or already present.
func (w *Workflow) AddCertification(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, c := range w.record.SupplierCertifications {
		if c == name {
			return false
		}
	}
	w.record.SupplierCertifications = append(w.record.SupplierCertifications, name)
	return true
}

// RemoveCertification removes name by exact match.
func (w *Workflow) RemoveCertification(name string) bool {
	certs := w.record.SupplierCertifications
	for i, c := range certs {
		if c == name {
			w.record.SupplierCertifications = append(certs[:i:i], certs[i+1:]...)
			return true
		}
	}
	return false
}

// SetLatitude replaces the latitude half of the coordinates composite.
func (w *Workflow) SetLatitude(value string) {
	_, lng := splitCoordinates(w.record.Coordinates)
	w.record.Coordinates = value + "," + lng
}

// SetLongitude replaces the longitude half of the coordinates composite.
func (w *Workflow) SetLongitude(value string) {
	lat, _ := splitCoordinates(w.record.Coordinates)
	w.record.Coordinates = lat + "," + value
}

// Missing lists the fields of step s that are still empty. The list is
// informational; navigation never depends on it.
func (w *Workflow) Missing(s Step) []Field {
	var missing []Field
	for _, f := range s.Info().Fields {
		if v, _ := w.record.Get(f); strings.TrimSpace(v) == "" {
			missing = append(missing, f)
		}
	}
	if s == StepSupplier && len(w.record.SupplierCertifications) == 0 {
		missing = append(missing, "supplierCertifications")
	}
	if s == StepDocuments && len(w.record.Documents) == 0 {
		missing = append(missing, "documents")
	}
	return missing
}

// CanSubmit reports whether Submit may be called.
func (w *Workflow) CanSubmit() bool {
	return w.step == LastStep
}

// Submit stamps id, timestamp and status onto a copy of the record, hands
// it to the configured store and returns it. The step does not change.
// Submit panics when called before the review step.
func (w *Workflow) Submit(ctx context.Context) (Record, error) {
	if !w.CanSubmit() {
		panic(fmt.Sprintf("declaration: submit called on step %d", int(w.step)))
	}

	stamp := nextSubmissionTime(w.now())
	rec := w.record.Clone()
	rec.ID = strconv.FormatInt(stamp.UnixMilli(), 10)
	rec.Timestamp = stamp.UTC().Format("2006-01-02T15:04:05.000Z")
	rec.Status = StatusPending

	if w.store != nil {
		if err := w.store.Save(ctx, rec); err != nil {
			return Record{}, fmt.Errorf("declaration: save submitted record: %w", err)
		}
	}
	return rec, nil
}

var lastSubmission atomic.Int64

// nextSubmissionTime truncates now to milliseconds and bumps it past the
// previous submission so ids stay unique within the process.
func nextSubmissionTime(now time.Time) time.Time {
	ms := now.UnixMilli()
	for {
		last := lastSubmission.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastSubmission.CompareAndSwap(last, next) {
			return time.UnixMilli(next)
		}
	}
}

func outOfRange(s Step) string {
	return fmt.Sprintf("declaration: step %d out of range %d..%d", int(s), int(FirstStep), int(LastStep))
}
