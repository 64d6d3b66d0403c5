package sqlite

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionUpsertAndGet(t *testing.T) {
	db := openTestDB(t)

	if err := db.UpsertSession("s1", 1); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	row, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row == nil || row.Step != 1 {
		t.Fatalf("expected step 1, got %+v", row)
	}

	// Advancing the step updates in place.
	if err := db.UpsertSession("s1", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	row, _ = db.GetSession("s1")
	if row.Step != 2 {
		t.Errorf("expected step 2, got %d", row.Step)
	}
}

func TestGetSession_Missing(t *testing.T) {
	db := openTestDB(t)
	row, err := db.GetSession("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil for missing session, got %+v", row)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	db := openTestDB(t)

	payload := []byte(`{"referrer_name":"John Smith"}`)
	if err := db.SaveDraft("s1", payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := db.LoadDraft("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a draft")
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}
}

func TestLoadDraft_NoneSaved(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.LoadDraft("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("expected no draft")
	}
}

func TestDraft_LastWriteWins(t *testing.T) {
	db := openTestDB(t)

	db.SaveDraft("s1", []byte(`{"v":1}`))
	db.SaveDraft("s1", []byte(`{"v":2}`))

	got, _, _ := db.LoadDraft("s1")
	if string(got) != `{"v":2}` {
		t.Errorf("expected last write, got %s", got)
	}
}

func TestClearDraft(t *testing.T) {
	db := openTestDB(t)

	db.SaveDraft("s1", []byte(`{}`))
	if err := db.ClearDraft("s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := db.LoadDraft("s1"); ok {
		t.Error("expected draft cleared")
	}

	// Clearing an absent draft is not an error.
	if err := db.ClearDraft("s2"); err != nil {
		t.Errorf("clear absent: %v", err)
	}
}

func TestDeleteSession_RemovesDraft(t *testing.T) {
	db := openTestDB(t)

	db.UpsertSession("s1", 2)
	db.SaveDraft("s1", []byte(`{}`))

	if err := db.DeleteSession("s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if row, _ := db.GetSession("s1"); row != nil {
		t.Error("session still present")
	}
	if _, ok, _ := db.LoadDraft("s1"); ok {
		t.Error("draft still present")
	}
}

func TestSubmissionAuditLog(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.InsertSubmission("REF-AAA-BBB", "recXYZ", "TechCo"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Duplicate reference codes are rejected by the UNIQUE constraint.
	if _, err := db.InsertSubmission("REF-AAA-BBB", "recABC", "OtherCo"); err == nil {
		t.Error("expected duplicate reference code to fail")
	}

	subs, err := db.ListSubmissions(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	if subs[0].ReferenceCode != "REF-AAA-BBB" || subs[0].Company != "TechCo" {
		t.Errorf("unexpected row: %+v", subs[0])
	}
}
