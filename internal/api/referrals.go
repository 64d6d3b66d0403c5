package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/app/wizard"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
)

// ─── Wizard API ─────────────────────────────────────────────────────────────
// One session per in-flight referral. The client holds only the session id;
// state, draft, and step all live server-side, so a page refresh just
// re-fetches the session.
//
// POST /api/referrals               — start a session
// GET  /api/referrals/{id}          — current state + record (refresh path)
// PUT  /api/referrals/{id}/fields   — merge a partial field patch
// POST /api/referrals/{id}/next     — validate current step and advance
// POST /api/referrals/{id}/back     — previous step, no validation
// POST /api/referrals/{id}/submit   — final submission to the external store
// POST /api/referrals/{id}/reset    — wipe and return to step 1
// GET  /api/meta/options            — enum option lists for rendering

// sessionState is the wire form of a wizard session.
type sessionState struct {
	ID         string                    `json:"id"`
	Step       string                    `json:"step"`
	StepNumber int                       `json:"step_number"`
	Submitting bool                      `json:"submitting"`
	Record     domain.ReferralRecord     `json:"record"`
	Receipt    *domain.SubmissionReceipt `json:"receipt,omitempty"`
}

func (s *Server) stateOf(id string, m *wizard.Machine) sessionState {
	return sessionState{
		ID:         id,
		Step:       m.Step().String(),
		StepNumber: int(m.Step()),
		Submitting: m.Submitting(),
		Record:     m.Record(),
		Receipt:    m.Receipt(),
	}
}

func (s *Server) writeState(w http.ResponseWriter, status int, id string) {
	m, err := s.sessions.Get(id)
	if err != nil {
		s.wizardError(w, err)
		return
	}
	writeJSON(w, status, s.stateOf(id, m))
}

// handleCreateSession starts a new referral session.
// POST /api/referrals
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeState(w, http.StatusCreated, id)
}

// handleGetSession returns the session state and record.
// GET /api/referrals/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, http.StatusOK, chi.URLParam(r, "id"))
}

// fieldPatch is a partial record update; only present fields are applied.
type fieldPatch struct {
	ReferrerName        *string `json:"referrer_name"`
	ReferrerEmail       *string `json:"referrer_email"`
	ReferrerPhone       *string `json:"referrer_phone"`
	ReferrerCompany     *string `json:"referrer_company"`
	ReferredCompanyName *string `json:"referred_company_name"`
	ReferredContactName *string `json:"referred_contact_name"`
	ReferredEmail       *string `json:"referred_email"`
	ReferredPhone       *string `json:"referred_phone"`
	TransactionValue    *int64  `json:"transaction_value"`
	NotificationStatus  *string `json:"notification_status"`
	DiscoverySource     *string `json:"discovery_source"`
	OnboardingTimeline  *string `json:"onboarding_timeline"`
	AcceptedTerms       *bool   `json:"accepted_terms"`
}

func (p fieldPatch) apply(r *domain.ReferralRecord) {
	if p.ReferrerName != nil {
		r.ReferrerName = *p.ReferrerName
	}
	if p.ReferrerEmail != nil {
		r.ReferrerEmail = *p.ReferrerEmail
	}
	if p.ReferrerPhone != nil {
		r.ReferrerPhone = *p.ReferrerPhone
	}
	if p.ReferrerCompany != nil {
		r.ReferrerCompany = *p.ReferrerCompany
	}
	if p.ReferredCompanyName != nil {
		r.ReferredCompanyName = *p.ReferredCompanyName
	}
	if p.ReferredContactName != nil {
		r.ReferredContactName = *p.ReferredContactName
	}
	if p.ReferredEmail != nil {
		r.ReferredEmail = *p.ReferredEmail
	}
	if p.ReferredPhone != nil {
		r.ReferredPhone = *p.ReferredPhone
	}
	if p.TransactionValue != nil {
		r.TransactionValue = *p.TransactionValue
	}
	if p.NotificationStatus != nil {
		r.NotificationStatus = domain.NotificationStatus(*p.NotificationStatus)
	}
	if p.DiscoverySource != nil {
		r.DiscoverySource = domain.DiscoverySource(*p.DiscoverySource)
	}
	if p.OnboardingTimeline != nil {
		r.OnboardingTimeline = domain.OnboardingTimeline(*p.OnboardingTimeline)
	}
	if p.AcceptedTerms != nil {
		r.AcceptedTerms = *p.AcceptedTerms
	}
}

// handlePatchFields merges a partial field update into the draft.
// PUT /api/referrals/{id}/fields
func (s *Server) handlePatchFields(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch fieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.sessions.Update(id, patch.apply); err != nil {
		s.wizardError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, id)
}

// handleNext validates the current step and advances.
// POST /api/referrals/{id}/next
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fieldErrs, err := s.sessions.Next(id)
	if err != nil {
		s.wizardError(w, err)
		return
	}
	if fieldErrs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": fieldErrs,
		})
		return
	}
	s.writeState(w, http.StatusOK, id)
}

// handleBack moves to the previous step.
// POST /api/referrals/{id}/back
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Back(id); err != nil {
		s.wizardError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, id)
}

// handleSubmit posts the record to the external store.
// POST /api/referrals/{id}/submit
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	receipt, err := s.sessions.Submit(r.Context(), id)
	if err != nil {
		s.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"receipt": receipt,
	})
}

// handleReset wipes the session and returns to step 1.
// POST /api/referrals/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Reset(id); err != nil {
		s.wizardError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, id)
}

// handleOptions returns the enum option lists.
// GET /api/meta/options
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notification_status": domain.NotificationStatuses(),
		"discovery_source":    domain.DiscoverySources(),
		"onboarding_timeline": domain.OnboardingTimelines(),
	})
}

// wizardError maps domain errors to HTTP responses.
func (s *Server) wizardError(w http.ResponseWriter, err error) {
	var se *domain.SubmissionError
	if errors.As(err, &se) {
		status := http.StatusBadGateway
		switch se.Kind {
		case domain.KindValidationFailed:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error": map[string]interface{}{
					"kind":    se.Kind,
					"message": se.Kind.UserMessage(),
				},
				"errors": se.Fields,
			})
			return
		case domain.KindNotConfigured:
			status = http.StatusServiceUnavailable
		case domain.KindRateLimited:
			status = http.StatusTooManyRequests
		case domain.KindUnauthorized, domain.KindNetworkError, domain.KindUnknown:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]interface{}{
			"error": map[string]interface{}{
				"kind":    se.Kind,
				"message": se.Kind.UserMessage(),
			},
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSubmitInFlight),
		errors.Is(err, domain.ErrAlreadyComplete),
		errors.Is(err, domain.ErrNoBackFromFirstStep),
		errors.Is(err, domain.ErrNotAtFinalStep):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
