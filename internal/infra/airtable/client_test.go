package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/retry"
)

var refCodePattern = regexp.MustCompile(`^REF-[A-Z0-9]+-[A-Z0-9]+$`)

func validRecord() domain.ReferralRecord {
	return domain.ReferralRecord{
		ReferrerName:        "John Smith",
		ReferrerEmail:       "john@x.com",
		ReferrerPhone:       "9876543210",
		ReferrerCompany:     "Acme",
		ReferredCompanyName: "TechCo",
		ReferredContactName: "Jane Doe",
		ReferredEmail:       "jane@techco.com",
		ReferredPhone:       "9123456789",
		TransactionValue:    5000,
		NotificationStatus:  domain.NotifiedYes,
		DiscoverySource:     domain.SourceEmail,
		OnboardingTimeline:  domain.TimelineImmediate,
		AcceptedTerms:       true,
	}
}

// newTestClient points a client at srv with an instant retry policy.
func newTestClient(srv *httptest.Server) *Client {
	c := New(Config{
		BaseID:   "appTEST",
		APIToken: "keyTEST",
		APIURL:   srv.URL,
	})
	c.SetRetryPolicy(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Sleep:        func(context.Context, time.Duration) error { return nil },
	})
	return c
}

func TestNewReferenceCode_Pattern(t *testing.T) {
	for i := 0; i < 20; i++ {
		code := NewReferenceCode()
		if !refCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match %s", code, refCodePattern)
		}
	}
}

func TestTransform_FieldMapping(t *testing.T) {
	got := Transform(validRecord(), "REF-AAA-BBB")

	want := map[string]string{
		"Referrer Name":                   "John Smith",
		"Referrer Email":                  "john@x.com",
		"Referrer Phone Number":           "+919876543210",
		"Referrer Company":                "Acme",
		"Referred Company Name":           "TechCo",
		"Referred Contact Name":           "Jane Doe",
		"Referred Official Email":         "jane@techco.com",
		"Referred Phone Number":           "+919123456789",
		"Estimated Volume (in ₹)":         "5000",
		"Expected Onboarding":             "Immediate",
		"Have you notified this contact?": "Yes",
		"Referral Source":                 "Email",
		"Terms Accepted":                  "true",
		"referral_id":                     "REF-AAA-BBB",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transform mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_Success(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Fields map[string]string `json:"fields"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "recXYZ123",
			"createdTime": "2026-01-02T03:04:05.000Z",
			"fields":      gotBody.Fields,
		})
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if gotAuth != "Bearer keyTEST" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if !refCodePattern.MatchString(receipt.ReferenceCode) {
		t.Errorf("reference code %q does not match pattern", receipt.ReferenceCode)
	}
	if receipt.AirtableID != "recXYZ123" {
		t.Errorf("airtable id = %q", receipt.AirtableID)
	}
	if gotBody.Fields["referral_id"] != receipt.ReferenceCode {
		t.Errorf("payload referral_id %q != receipt code %q",
			gotBody.Fields["referral_id"], receipt.ReferenceCode)
	}
	if gotBody.Fields["Referrer Phone Number"] != "+919876543210" {
		t.Errorf("phone not prefixed: %q", gotBody.Fields["Referrer Phone Number"])
	}
}

func TestSubmit_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, `{"error":{"message":"upstream hiccup"}}`, http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "rec1"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (no third attempt after success)", attempts)
	}
}

func TestSubmit_ExhaustsRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want exactly 3", attempts)
	}
	if kind := domain.ClassifySubmission(err); kind != domain.KindNetworkError {
		t.Errorf("kind = %s, want %s", kind, domain.KindNetworkError)
	}
}

func TestSubmit_RateLimitedClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if kind := domain.ClassifySubmission(err); kind != domain.KindRateLimited {
		t.Errorf("kind = %s, want %s", kind, domain.KindRateLimited)
	}
}

func TestSubmit_UnauthorizedNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not be retried)", attempts)
	}
	if kind := domain.ClassifySubmission(err); kind != domain.KindUnauthorized {
		t.Errorf("kind = %s, want %s", kind, domain.KindUnauthorized)
	}
}

func TestSubmit_UnprocessableIsUnknownAndFinal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"error":{"message":"unknown field"}}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Submit(context.Background(), validRecord())
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if kind := domain.ClassifySubmission(err); kind != domain.KindUnknown {
		t.Errorf("kind = %s, want %s", kind, domain.KindUnknown)
	}
}

func TestSubmit_NotConfiguredFailsFast(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL}) // no base id, no token
	_, err := c.Submit(context.Background(), validRecord())
	if kind := domain.ClassifySubmission(err); kind != domain.KindNotConfigured {
		t.Fatalf("kind = %s, want %s", kind, domain.KindNotConfigured)
	}
	if hit {
		t.Error("network call made despite missing configuration")
	}
}

func TestSubmit_InvalidRecordNoNetworkCall(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	rec := validRecord()
	rec.AcceptedTerms = false
	_, err := newTestClient(srv).Submit(context.Background(), rec)

	var se *domain.SubmissionError
	if !errors.As(err, &se) || se.Kind != domain.KindValidationFailed {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if se.Fields["accepted_terms"] == "" {
		t.Error("expected field error for accepted_terms")
	}
	if hit {
		t.Error("network call made for invalid record")
	}
}
