package draft

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

func sampleRecord() domain.ReferralRecord {
	return domain.ReferralRecord{
		ReferrerName:     "John Smith",
		ReferrerEmail:    "john@x.com",
		ReferrerPhone:    "9876543210",
		TransactionValue: 5000,
		DiscoverySource:  domain.SourceEmail,
	}
}

func sqliteStore(t *testing.T) (*SQLiteStore, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db), db
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, _ := sqliteStore(t)

	want := sampleRecord()
	if err := store.Save("s1", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a draft")
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	store, _ := sqliteStore(t)

	rec, ok, err := store.Load("missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok || rec != nil {
		t.Error("expected no draft, not an error")
	}
}

func TestSQLiteStore_CorruptDraftTreatedAsEmpty(t *testing.T) {
	store, db := sqliteStore(t)

	// Bypass the store to plant a corrupt payload.
	if err := db.SaveDraft("s1", []byte(`{"referrer_name": not-json`)); err != nil {
		t.Fatalf("plant: %v", err)
	}

	rec, ok, err := store.Load("s1")
	if err != nil {
		t.Fatalf("load should swallow corrupt drafts, got %v", err)
	}
	if ok || rec != nil {
		t.Error("corrupt draft should read as no draft")
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	store, _ := sqliteStore(t)

	store.Save("s1", sampleRecord())
	if err := store.Clear("s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load("s1"); ok {
		t.Error("draft survived clear")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if _, ok, _ := store.Load("s1"); ok {
		t.Fatal("expected empty store")
	}

	want := sampleRecord()
	store.Save("s1", want)

	got, ok, _ := store.Load("s1")
	if !ok {
		t.Fatal("expected a draft")
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	store.Clear("s1")
	if _, ok, _ := store.Load("s1"); ok {
		t.Error("draft survived clear")
	}
}
