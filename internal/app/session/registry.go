// Package session owns the mapping from session ids to wizard machines.
// Exactly one referral record is in flight per session. Machines live in
// memory; their step and draft are persisted so a restart (or a browser
// refresh hitting a fresh process) resumes where the user left off.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/app/wizard"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/draft"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/observability"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

// Registry creates, hydrates, and drives wizard machines by session id.
type Registry struct {
	mu        sync.Mutex
	db        *sqlite.DB
	drafts    draft.Store
	submitter wizard.Submitter
	machines  map[string]*wizard.Machine
}

// NewRegistry creates a registry backed by db for steps, drafts, and the
// submission audit log.
func NewRegistry(db *sqlite.DB, drafts draft.Store, submitter wizard.Submitter) *Registry {
	return &Registry{
		db:        db,
		drafts:    drafts,
		submitter: submitter,
		machines:  make(map[string]*wizard.Machine),
	}
}

// Create starts a new referral session and returns its id.
func (r *Registry) Create() (string, error) {
	id := uuid.NewString()
	if err := r.db.UpsertSession(id, int(wizard.Step1)); err != nil {
		return "", err
	}

	m := wizard.New(r.submitter)
	r.bind(id, m)

	r.mu.Lock()
	r.machines[id] = m
	observability.ActiveSessions.Set(float64(len(r.machines)))
	r.mu.Unlock()
	return id, nil
}

// Get returns the machine for a session, hydrating it from storage if this
// process has not seen the session yet. Unknown ids return
// domain.ErrSessionNotFound.
func (r *Registry) Get(id string) (*wizard.Machine, error) {
	r.mu.Lock()
	if m, ok := r.machines[id]; ok {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	row, err := r.db.GetSession(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrSessionNotFound
	}

	m := wizard.New(r.submitter)
	if rec, ok, err := r.drafts.Load(id); err != nil {
		return nil, err
	} else if ok {
		m.Restore(*rec, wizard.Step(row.Step))
	} else {
		m.Restore(domain.ReferralRecord{}, wizard.Step(row.Step))
	}
	r.bind(id, m)

	r.mu.Lock()
	// Another request may have hydrated concurrently; first one wins.
	if existing, ok := r.machines[id]; ok {
		m = existing
	} else {
		r.machines[id] = m
	}
	observability.ActiveSessions.Set(float64(len(r.machines)))
	r.mu.Unlock()
	return m, nil
}

// bind subscribes the draft store to the machine's change events.
func (r *Registry) bind(id string, m *wizard.Machine) {
	m.OnChange(func(rec domain.ReferralRecord) {
		if err := r.drafts.Save(id, rec); err != nil {
			// Fire-and-forget: a lost draft write costs a few keystrokes, not the session.
			log.Printf("[session] save draft %s: %v", id, err)
		}
	})
	m.OnClear(func() {
		if err := r.drafts.Clear(id); err != nil {
			log.Printf("[session] clear draft %s: %v", id, err)
		}
	})
}

// ─── Wizard Operations ──────────────────────────────────────────────────────
// Thin wrappers that drive the machine and keep the persisted step current.

// Update applies a field mutation to the session's record.
func (r *Registry) Update(id string, mutate func(*domain.ReferralRecord)) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	return m.Update(mutate)
}

// Next advances the session's wizard one step.
func (r *Registry) Next(id string) (domain.FieldErrors, error) {
	m, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	errs, err := m.Next()
	if err == nil && errs == nil {
		r.persistStep(id, m)
	}
	return errs, err
}

// Back moves the session's wizard one step back.
func (r *Registry) Back(id string) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := m.Back(); err != nil {
		return err
	}
	r.persistStep(id, m)
	return nil
}

// Submit drives the final transition and records the submission in the local
// audit log on success.
func (r *Registry) Submit(ctx context.Context, id string) (*domain.SubmissionReceipt, error) {
	m, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	company := m.Record().ReferredCompanyName
	receipt, err := m.Submit(ctx)
	if err != nil {
		return nil, err
	}
	r.persistStep(id, m)

	// Audit failures must not undo a successful submission.
	if _, err := r.db.InsertSubmission(receipt.ReferenceCode, receipt.AirtableID, company); err != nil {
		log.Printf("[session] audit log insert for %s: %v", receipt.ReferenceCode, err)
	}
	return receipt, nil
}

// Reset wipes the session's record and returns its wizard to the first step.
func (r *Registry) Reset(id string) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := m.Reset(); err != nil {
		return err
	}
	r.persistStep(id, m)
	return nil
}

func (r *Registry) persistStep(id string, m *wizard.Machine) {
	if err := r.db.UpsertSession(id, int(m.Step())); err != nil {
		log.Printf("[session] persist step for %s: %v", id, err)
	}
}
