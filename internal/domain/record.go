// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the service; it depends on nothing.
package domain

import "time"

// ─── Enums ──────────────────────────────────────────────────────────────────

// NotificationStatus records whether the referrer has told the referred
// contact to expect a call.
type NotificationStatus string

const (
	NotifiedYes NotificationStatus = "Yes"
	NotifiedNo  NotificationStatus = "No"
)

// DiscoverySource is how the referrer heard about the program.
type DiscoverySource string

const (
	SourceEmail       DiscoverySource = "Email"
	SourceKarbonTeam  DiscoverySource = "Karbon Team"
	SourceWordOfMouth DiscoverySource = "Word of Mouth"
	SourceOther       DiscoverySource = "Other"
)

// OnboardingTimeline is when the referred business expects to onboard.
type OnboardingTimeline string

const (
	TimelineImmediate   OnboardingTimeline = "Immediate"
	TimelineThisMonth   OnboardingTimeline = "This Month"
	TimelineThisQuarter OnboardingTimeline = "This Quarter"
	TimelineNextQuarter OnboardingTimeline = "Next Quarter"
)

// NotificationStatuses returns the selectable notification options in display order.
func NotificationStatuses() []NotificationStatus {
	return []NotificationStatus{NotifiedYes, NotifiedNo}
}

// DiscoverySources returns the selectable discovery sources in display order.
func DiscoverySources() []DiscoverySource {
	return []DiscoverySource{SourceEmail, SourceKarbonTeam, SourceWordOfMouth, SourceOther}
}

// OnboardingTimelines returns the selectable timelines in display order.
func OnboardingTimelines() []OnboardingTimeline {
	return []OnboardingTimeline{TimelineImmediate, TimelineThisMonth, TimelineThisQuarter, TimelineNextQuarter}
}

// ─── Referral Record ────────────────────────────────────────────────────────

// ReferralRecord is the single entity the wizard builds across its steps.
// Zero values mean "not yet answered"; the JSON form doubles as the draft
// snapshot persisted between visits.
type ReferralRecord struct {
	// Step 1 — referrer identity
	ReferrerName    string `json:"referrer_name"`
	ReferrerEmail   string `json:"referrer_email"`
	ReferrerPhone   string `json:"referrer_phone"`
	ReferrerCompany string `json:"referrer_company"`

	// Step 2 — referred business
	ReferredCompanyName string             `json:"referred_company_name"`
	ReferredContactName string             `json:"referred_contact_name"`
	ReferredEmail       string             `json:"referred_email"`
	ReferredPhone       string             `json:"referred_phone"`
	TransactionValue    int64              `json:"transaction_value"`
	NotificationStatus  NotificationStatus `json:"notification_status"`
	DiscoverySource     DiscoverySource    `json:"discovery_source"`
	OnboardingTimeline  OnboardingTimeline `json:"onboarding_timeline"`

	// Step 3 — consent
	AcceptedTerms bool `json:"accepted_terms"`
}

// IsZero reports whether no field has been answered yet.
func (r ReferralRecord) IsZero() bool {
	return r == ReferralRecord{}
}

// ─── Submission Receipt ─────────────────────────────────────────────────────

// SubmissionReceipt is the immutable result of a successful submission.
// ReferenceCode is the locally generated, user-facing code; AirtableID is the
// server-assigned record id, kept for the audit log only.
type SubmissionReceipt struct {
	ReferenceCode string    `json:"reference_code"`
	AirtableID    string    `json:"airtable_id,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
