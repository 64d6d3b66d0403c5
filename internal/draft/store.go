// Package draft persists in-progress wizard snapshots so a page refresh or an
// aborted terminal session loses nothing. Saves are fire-and-forget from the
// wizard's point of view; the last write wins.
package draft

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

// Store is the draft persistence port. A corrupt stored snapshot is treated
// as "no draft": logged, never surfaced to the user.
type Store interface {
	// Load returns the stored snapshot for a session, if any.
	Load(sessionID string) (*domain.ReferralRecord, bool, error)

	// Save persists the snapshot, replacing any previous one.
	Save(sessionID string, rec domain.ReferralRecord) error

	// Clear removes the stored snapshot. Clearing an absent draft is a no-op.
	Clear(sessionID string) error
}

// ─── SQLite-backed Store ────────────────────────────────────────────────────

// SQLiteStore persists drafts in the local referral database.
type SQLiteStore struct {
	db *sqlite.DB
}

// NewSQLiteStore wraps db as a draft store.
func NewSQLiteStore(db *sqlite.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load implements Store.
func (s *SQLiteStore) Load(sessionID string) (*domain.ReferralRecord, bool, error) {
	payload, ok, err := s.db.LoadDraft(sessionID)
	if err != nil || !ok {
		return nil, false, err
	}

	var rec domain.ReferralRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		// Corrupt draft: drop it rather than blocking the wizard.
		log.Printf("[draft] discarding corrupt draft for session %s: %v", sessionID, err)
		return nil, false, nil
	}
	return &rec, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(sessionID string, rec domain.ReferralRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.SaveDraft(sessionID, payload)
}

// Clear implements Store.
func (s *SQLiteStore) Clear(sessionID string) error {
	return s.db.ClearDraft(sessionID)
}

// ─── In-memory Store ────────────────────────────────────────────────────────

// MemoryStore keeps drafts in a map. Used in tests and as a fallback when no
// data directory is available.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]domain.ReferralRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]domain.ReferralRecord)}
}

// Load implements Store.
func (s *MemoryStore) Load(sessionID string) (*domain.ReferralRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[sessionID]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(sessionID string, rec domain.ReferralRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = rec
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}
