// Package airtable is the submission adapter: it maps a validated referral
// record onto the external store's column labels and posts it with bounded
// retry, classifying failures into the user-facing error taxonomy.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/observability"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/retry"
)

// Local numbers are collected as bare 10-digit strings and transmitted with
// the country calling code prepended.
const phonePrefix = "+91"

// DefaultTableID is the referrals table in the production base.
const DefaultTableID = "tbll5rRpzlnqjl2l8"

// DefaultAPIURL is the Airtable REST endpoint root.
const DefaultAPIURL = "https://api.airtable.com/v0"

// ─── Field Mapping ──────────────────────────────────────────────────────────
// Fixed table: record field → external column label. Values are strings
// except where noted; consent is a stringified boolean.

var fieldMapping = struct {
	ReferrerName        string
	ReferrerEmail       string
	ReferrerPhone       string
	ReferrerCompany     string
	ReferredCompanyName string
	ReferredContactName string
	ReferredEmail       string
	ReferredPhone       string
	TransactionValue    string
	OnboardingTimeline  string
	NotificationStatus  string
	DiscoverySource     string
	AcceptedTerms       string
	ReferralID          string
}{
	ReferrerName:        "Referrer Name",
	ReferrerEmail:       "Referrer Email",
	ReferrerPhone:       "Referrer Phone Number",
	ReferrerCompany:     "Referrer Company",
	ReferredCompanyName: "Referred Company Name",
	ReferredContactName: "Referred Contact Name",
	ReferredEmail:       "Referred Official Email",
	ReferredPhone:       "Referred Phone Number",
	TransactionValue:    "Estimated Volume (in ₹)",
	OnboardingTimeline:  "Expected Onboarding",
	NotificationStatus:  "Have you notified this contact?",
	DiscoverySource:     "Referral Source",
	AcceptedTerms:       "Terms Accepted",
	ReferralID:          "referral_id",
}

// Transform flattens a record into the external store's field map, generating
// no values of its own beyond the supplied reference code.
func Transform(rec domain.ReferralRecord, referenceCode string) map[string]string {
	return map[string]string{
		fieldMapping.ReferrerName:        rec.ReferrerName,
		fieldMapping.ReferrerEmail:       rec.ReferrerEmail,
		fieldMapping.ReferrerPhone:       phonePrefix + rec.ReferrerPhone,
		fieldMapping.ReferrerCompany:     rec.ReferrerCompany,
		fieldMapping.ReferredCompanyName: rec.ReferredCompanyName,
		fieldMapping.ReferredContactName: rec.ReferredContactName,
		fieldMapping.ReferredEmail:       rec.ReferredEmail,
		fieldMapping.ReferredPhone:       phonePrefix + rec.ReferredPhone,
		fieldMapping.TransactionValue:    strconv.FormatInt(rec.TransactionValue, 10),
		fieldMapping.OnboardingTimeline:  string(rec.OnboardingTimeline),
		fieldMapping.NotificationStatus:  string(rec.NotificationStatus),
		fieldMapping.DiscoverySource:     string(rec.DiscoverySource),
		fieldMapping.AcceptedTerms:       strconv.FormatBool(rec.AcceptedTerms),
		fieldMapping.ReferralID:          referenceCode,
	}
}

// ─── Client ─────────────────────────────────────────────────────────────────

// Config holds the external store credentials and tuning knobs.
type Config struct {
	BaseID   string
	APIToken string
	TableID  string        // defaults to DefaultTableID
	APIURL   string        // defaults to DefaultAPIURL
	Timeout  time.Duration // per-attempt HTTP timeout, defaults to 10s
}

// Client posts referral records to the external store.
type Client struct {
	cfg    Config
	http   *http.Client
	policy retry.Policy
}

// New creates a submission client. Missing credentials are detected at
// Submit time so construction never fails.
func New(cfg Config) *Client {
	if cfg.TableID == "" {
		cfg.TableID = DefaultTableID
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	policy := retry.Default()
	policy.Retryable = transient

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: policy,
	}
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.BaseID != "" && c.cfg.APIToken != ""
}

// SetRetryPolicy replaces the retry policy. Tests use this to inject a fake
// sleeper.
func (c *Client) SetRetryPolicy(p retry.Policy) {
	if p.Retryable == nil {
		p.Retryable = transient
	}
	c.policy = p
}

// Submit re-validates the record, transforms it, and posts it with bounded
// retry. On success the returned receipt carries the locally generated
// reference code; the server-assigned id is auxiliary. On failure the error
// is a classified *domain.SubmissionError and no side effects remain.
func (c *Client) Submit(ctx context.Context, rec domain.ReferralRecord) (*domain.SubmissionReceipt, error) {
	start := time.Now()
	receipt, err := c.submit(ctx, rec)
	observability.SubmissionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues(string(domain.ClassifySubmission(err))).Inc()
		return nil, err
	}
	observability.SubmissionsTotal.WithLabelValues("ok").Inc()
	return receipt, nil
}

func (c *Client) submit(ctx context.Context, rec domain.ReferralRecord) (*domain.SubmissionReceipt, error) {
	// Defense in depth: the wizard already gates each step.
	if fieldErrs := domain.Validate(rec); fieldErrs != nil {
		return nil, &domain.SubmissionError{Kind: domain.KindValidationFailed, Err: fieldErrs, Fields: fieldErrs}
	}

	// Fail fast before any network call.
	if !c.Configured() {
		return nil, domain.NewSubmissionError(domain.KindNotConfigured,
			errors.New("airtable base id or api token missing"))
	}

	referenceCode := NewReferenceCode()
	body, err := json.Marshal(map[string]any{
		"fields": Transform(rec, referenceCode),
	})
	if err != nil {
		return nil, domain.NewSubmissionError(domain.KindUnknown, err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.APIURL, c.cfg.BaseID, c.cfg.TableID)
	log.Printf("[airtable] submitting referral %s for %s", referenceCode, rec.ReferredCompanyName)

	var created createdRecord
	err = c.policy.Do(ctx, func() error {
		observability.SubmissionAttempts.Inc()
		return c.post(ctx, endpoint, body, &created)
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Printf("[airtable] referral %s accepted, record id %s", referenceCode, created.ID)
	return &domain.SubmissionReceipt{
		ReferenceCode: referenceCode,
		AirtableID:    created.ID,
		SubmittedAt:   time.Now(),
	}, nil
}

// createdRecord is the subset of the Airtable response we read.
type createdRecord struct {
	ID          string          `json:"id"`
	CreatedTime string          `json:"createdTime"`
	Fields      json.RawMessage `json:"fields"`
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, out *createdRecord) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ─── Error Classification ───────────────────────────────────────────────────

// statusError is a non-2xx response from the external store.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("airtable: %d %s", e.Status, http.StatusText(e.Status))
}

func newStatusError(resp *http.Response) *statusError {
	se := &statusError{Status: resp.StatusCode}

	// Airtable error bodies look like {"error":{"type":..., "message":...}}.
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(raw, &body) == nil {
		se.Message = body.Error.Message
	}
	return se
}

// transient reports whether an attempt error is worth retrying: transport
// failures, 5xx, and 429. Other 4xx are final.
func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	// Anything that never produced a status is a transport failure.
	return true
}

// classify maps the terminal attempt error to the user-facing taxonomy.
func classify(err error) *domain.SubmissionError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewSubmissionError(domain.KindNetworkError, err)
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusTooManyRequests:
			return domain.NewSubmissionError(domain.KindRateLimited, err)
		case se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden:
			return domain.NewSubmissionError(domain.KindUnauthorized, err)
		case se.Status >= 500:
			return domain.NewSubmissionError(domain.KindNetworkError, err)
		default:
			return domain.NewSubmissionError(domain.KindUnknown, err)
		}
	}
	return domain.NewSubmissionError(domain.KindNetworkError, err)
}
