// Package wizard implements the four-step referral wizard as an explicit
// state machine. A Machine owns exactly one in-flight referral record; there
// is no ambient global state, which keeps transitions unit-testable without
// any rendering or transport layer.
//
// Transitions:
//
//	Step1 --(validate ok)--> Step2 --(validate ok)--> Step3
//	Step3 --(consent + submission ok)--> Complete
//	Step2|Step3 --(back)--> previous step, unconditionally
//	any --(reset)--> Step1 with the record wiped and the draft cleared
package wizard

import (
	"context"
	"strconv"
	"sync"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/observability"
)

// Step identifies a wizard state.
type Step int

const (
	Step1 Step = 1
	Step2 Step = 2
	Step3 Step = 3
	// Complete is terminal; the only transition out is Reset.
	Complete Step = 4
)

// String returns the step name used in API payloads and logs.
func (s Step) String() string {
	switch s {
	case Step1:
		return "referrer"
	case Step2:
		return "business"
	case Step3:
		return "terms"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Submitter is the port to the external store adapter.
type Submitter interface {
	Submit(ctx context.Context, rec domain.ReferralRecord) (*domain.SubmissionReceipt, error)
}

// Machine is the wizard controller for one referral session.
type Machine struct {
	mu         sync.Mutex
	step       Step
	record     domain.ReferralRecord
	receipt    *domain.SubmissionReceipt
	submitting bool

	submitter Submitter
	onChange  []func(domain.ReferralRecord)
	onClear   []func()
}

// New creates a machine at Step1 with an empty record.
func New(submitter Submitter) *Machine {
	return &Machine{step: Step1, submitter: submitter}
}

// Restore rehydrates the machine from a stored draft. It does not notify
// observers: the draft they would write is the one just read.
func (m *Machine) Restore(rec domain.ReferralRecord, step Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if step < Step1 || step > Step3 {
		step = Step1
	}
	m.record = rec
	m.step = step
}

// OnChange registers an observer called with a snapshot after every record
// mutation. The draft store subscribes here; saves are fire-and-forget.
func (m *Machine) OnChange(fn func(domain.ReferralRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnClear registers an observer called when the draft becomes obsolete
// (successful submission or reset).
func (m *Machine) OnClear(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = append(m.onClear, fn)
}

// ─── Accessors ──────────────────────────────────────────────────────────────

// Step returns the current state.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Record returns a snapshot of the in-progress record.
func (m *Machine) Record() domain.ReferralRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// Receipt returns the submission receipt, nil before Complete.
func (m *Machine) Receipt() *domain.SubmissionReceipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.receipt == nil {
		return nil
	}
	cp := *m.receipt
	return &cp
}

// Submitting reports whether a submission is outstanding. The presentation
// layer uses this to block re-submission and navigation.
func (m *Machine) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// ─── Mutation ───────────────────────────────────────────────────────────────

// Update mutates the record under the machine's lock and notifies observers
// with the resulting snapshot. Rejected once the record is frozen (submitted
// or mid-submission).
func (m *Machine) Update(mutate func(*domain.ReferralRecord)) error {
	m.mu.Lock()
	if m.step == Complete {
		m.mu.Unlock()
		return domain.ErrAlreadyComplete
	}
	if m.submitting {
		m.mu.Unlock()
		return domain.ErrSubmitInFlight
	}
	mutate(&m.record)
	snapshot := m.record
	observers := m.onChange
	m.mu.Unlock()

	observability.DraftsSaved.Inc()
	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}

// ─── Transitions ────────────────────────────────────────────────────────────

// Next validates the current step and advances on success. On failure the
// machine stays put and the aggregated field errors are returned.
func (m *Machine) Next() (domain.FieldErrors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.step == Complete:
		return nil, domain.ErrAlreadyComplete
	case m.submitting:
		return nil, domain.ErrSubmitInFlight
	case m.step == Step3:
		// Step3 advances only through Submit.
		return nil, domain.ErrNotAtFinalStep
	}

	if errs := domain.ValidateStep(int(m.step), m.record); errs != nil {
		observability.StepValidationFailures.WithLabelValues(strconv.Itoa(int(m.step))).Inc()
		return errs, nil
	}

	m.step++
	observability.StepTransitions.WithLabelValues("next").Inc()
	return nil, nil
}

// Back moves to the previous step unconditionally. Step1 has no back
// transition and Complete only exits via Reset.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.step == Complete:
		return domain.ErrAlreadyComplete
	case m.submitting:
		return domain.ErrSubmitInFlight
	case m.step == Step1:
		return domain.ErrNoBackFromFirstStep
	}

	m.step--
	observability.StepTransitions.WithLabelValues("back").Inc()
	return nil
}

// Submit drives the Step3 → Complete transition. It requires explicit
// consent, blocks re-entrant calls while the external call is outstanding,
// and clears the draft only after success. On any failure the draft and the
// current step are preserved so the user can retry.
func (m *Machine) Submit(ctx context.Context) (*domain.SubmissionReceipt, error) {
	m.mu.Lock()
	switch {
	case m.step == Complete:
		m.mu.Unlock()
		return nil, domain.ErrAlreadyComplete
	case m.submitting:
		m.mu.Unlock()
		return nil, domain.ErrSubmitInFlight
	case m.step != Step3:
		m.mu.Unlock()
		return nil, domain.ErrNotAtFinalStep
	}
	if errs := domain.ValidateStep(3, m.record); errs != nil {
		m.mu.Unlock()
		observability.StepValidationFailures.WithLabelValues("3").Inc()
		return nil, &domain.SubmissionError{Kind: domain.KindValidationFailed, Err: errs, Fields: errs}
	}
	m.submitting = true
	rec := m.record
	m.mu.Unlock()

	// The in-progress flag must clear on every path or the UI wedges.
	defer func() {
		m.mu.Lock()
		m.submitting = false
		m.mu.Unlock()
	}()

	receipt, err := m.submitter.Submit(ctx, rec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.receipt = receipt
	m.step = Complete
	observers := m.onClear
	m.mu.Unlock()

	observability.StepTransitions.WithLabelValues("next").Inc()
	for _, fn := range observers {
		fn()
	}
	return receipt, nil
}

// Reset discards the record and any receipt and returns to Step1. The draft
// is cleared; there is nothing to resume afterwards.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return domain.ErrSubmitInFlight
	}
	m.record = domain.ReferralRecord{}
	m.receipt = nil
	m.step = Step1
	observers := m.onClear
	m.mu.Unlock()

	observability.StepTransitions.WithLabelValues("reset").Inc()
	for _, fn := range observers {
		fn()
	}
	return nil
}
