package sqlite

import (
	"database/sql"
	"time"
)

// ─── Session Operations ─────────────────────────────────────────────────────

// SessionRow is a persisted wizard session.
type SessionRow struct {
	ID        string
	Step      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertSession inserts or updates a session's current step.
func (db *DB) UpsertSession(id string, step int) error {
	_, err := db.db.Exec(`
		INSERT INTO sessions (id, step, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			step       = excluded.step,
			updated_at = datetime('now')
	`, id, step)
	return err
}

// GetSession retrieves a session by id. Returns (nil, nil) when absent.
func (db *DB) GetSession(id string) (*SessionRow, error) {
	var row SessionRow
	var created, updated string
	err := db.db.QueryRow(`
		SELECT id, step, created_at, updated_at FROM sessions WHERE id = ?
	`, id).Scan(&row.ID, &row.Step, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
	row.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updated)
	return &row, nil
}

// ListSessions returns all persisted sessions, newest first.
func (db *DB) ListSessions() ([]SessionRow, error) {
	rows, err := db.db.Query(`
		SELECT id, step, created_at, updated_at FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionRow
	for rows.Next() {
		var r SessionRow
		var created, updated string
		if err := rows.Scan(&r.ID, &r.Step, &created, &updated); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		r.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updated)
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteSession removes a session and its draft.
func (db *DB) DeleteSession(id string) error {
	if _, err := db.db.Exec(`DELETE FROM drafts WHERE session_id = ?`, id); err != nil {
		return err
	}
	_, err := db.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// ─── Draft Operations ───────────────────────────────────────────────────────

// SaveDraft writes the JSON snapshot for a session. Last write wins.
func (db *DB) SaveDraft(sessionID string, payload []byte) error {
	_, err := db.db.Exec(`
		INSERT INTO drafts (session_id, payload, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(session_id) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = datetime('now')
	`, sessionID, string(payload))
	return err
}

// LoadDraft reads the JSON snapshot for a session.
// Returns (nil, false, nil) when no draft exists.
func (db *DB) LoadDraft(sessionID string) ([]byte, bool, error) {
	var payload string
	err := db.db.QueryRow(`
		SELECT payload FROM drafts WHERE session_id = ?
	`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// ClearDraft removes a session's draft.
func (db *DB) ClearDraft(sessionID string) error {
	_, err := db.db.Exec(`DELETE FROM drafts WHERE session_id = ?`, sessionID)
	return err
}

// ─── Submission Audit Log ───────────────────────────────────────────────────

// SubmissionRow is one successful submission.
type SubmissionRow struct {
	ID            int64
	ReferenceCode string
	AirtableID    string
	Company       string
	SubmittedAt   time.Time
}

// InsertSubmission records a successful submission.
// The UNIQUE constraint on reference_code surfaces local collisions.
func (db *DB) InsertSubmission(referenceCode, airtableID, company string) (int64, error) {
	res, err := db.db.Exec(`
		INSERT INTO submissions (reference_code, airtable_id, company)
		VALUES (?, ?, ?)
	`, referenceCode, airtableID, company)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubmissions returns the most recent submissions, newest first.
func (db *DB) ListSubmissions(limit int) ([]SubmissionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.Query(`
		SELECT id, reference_code, airtable_id, company, submitted_at
		FROM submissions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SubmissionRow
	for rows.Next() {
		var r SubmissionRow
		var submitted string
		if err := rows.Scan(&r.ID, &r.ReferenceCode, &r.AirtableID, &r.Company, &submitted); err != nil {
			return nil, err
		}
		r.SubmittedAt, _ = time.Parse("2006-01-02 15:04:05", submitted)
		result = append(result, r)
	}
	return result, rows.Err()
}
