package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ─── Field Validators ───────────────────────────────────────────────────────
// One declarative rule per field. All validators are pure: same input, same
// verdict, no side effects. An empty return string means the field is valid.

// Bounds adopted as canonical: 10-digit mobile numbers with a 6–9 leading
// digit, and an estimated annual volume between 500 and 100,000 whole units.
const (
	MinTransactionValue = 500
	MaxTransactionValue = 100000
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

// FieldErrors maps a field name (its JSON key) to a human-readable message.
type FieldErrors map[string]string

// Error implements the error interface.
func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "no field errors"
	}
	parts := make([]string, 0, len(f))
	for field, msg := range f {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failed field names in sorted order, for stable display.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for field := range f {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// ValidateName checks a person name (2–100 characters after trimming).
func ValidateName(v string) string {
	return validateLength(v, 2, 100, "Name")
}

// ValidateCompany checks a company name (2–150 characters after trimming).
func ValidateCompany(v string) string {
	return validateLength(v, 2, 150, "Company name")
}

// ValidateEmail checks basic email shape.
func ValidateEmail(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "This field is required"
	}
	if !emailPattern.MatchString(v) {
		return "Invalid email format"
	}
	return ""
}

// ValidatePhone checks for exactly 10 digits with a 6–9 leading digit.
func ValidatePhone(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "This field is required"
	}
	if !phonePattern.MatchString(v) {
		return "Please enter a valid 10-digit mobile number"
	}
	return ""
}

// ValidateTransactionValue checks the estimated annual volume bound.
func ValidateTransactionValue(v int64) string {
	if v < MinTransactionValue || v > MaxTransactionValue {
		return fmt.Sprintf("Must be between %d and %d", MinTransactionValue, MaxTransactionValue)
	}
	return ""
}

// ValidateNotificationStatus checks enum membership.
func ValidateNotificationStatus(v NotificationStatus) string {
	switch v {
	case NotifiedYes, NotifiedNo:
		return ""
	}
	return "Please select an option"
}

// ValidateDiscoverySource checks enum membership.
func ValidateDiscoverySource(v DiscoverySource) string {
	switch v {
	case SourceEmail, SourceKarbonTeam, SourceWordOfMouth, SourceOther:
		return ""
	}
	return "Please select an option"
}

// ValidateOnboardingTimeline checks enum membership.
func ValidateOnboardingTimeline(v OnboardingTimeline) string {
	switch v {
	case TimelineImmediate, TimelineThisMonth, TimelineThisQuarter, TimelineNextQuarter:
		return ""
	}
	return "Please select an option"
}

// ValidateAcceptedTerms checks that consent was explicitly given.
func ValidateAcceptedTerms(v bool) string {
	if !v {
		return "You must accept the terms and conditions"
	}
	return ""
}

func validateLength(v string, min, max int, label string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "This field is required"
	}
	if len(v) < min {
		return fmt.Sprintf("%s must be at least %d characters", label, min)
	}
	if len(v) > max {
		return fmt.Sprintf("%s must be at most %d characters", label, max)
	}
	return ""
}

// ─── Step Validation ────────────────────────────────────────────────────────
// Each step owns a disjoint subset of the record's fields; a step is valid
// iff every one of its rules passes. Results aggregate into FieldErrors.

// StepCount is the number of input-bearing wizard steps.
const StepCount = 3

// ValidateStep runs all rules for the given step (1–3) and returns the
// aggregated failures. An out-of-range step returns no errors.
func ValidateStep(step int, r ReferralRecord) FieldErrors {
	errs := FieldErrors{}
	add := func(field, msg string) {
		if msg != "" {
			errs[field] = msg
		}
	}

	switch step {
	case 1:
		add("referrer_name", ValidateName(r.ReferrerName))
		add("referrer_email", ValidateEmail(r.ReferrerEmail))
		add("referrer_phone", ValidatePhone(r.ReferrerPhone))
		add("referrer_company", ValidateCompany(r.ReferrerCompany))
	case 2:
		add("referred_company_name", ValidateCompany(r.ReferredCompanyName))
		add("referred_contact_name", ValidateName(r.ReferredContactName))
		add("referred_email", ValidateEmail(r.ReferredEmail))
		add("referred_phone", ValidatePhone(r.ReferredPhone))
		add("transaction_value", ValidateTransactionValue(r.TransactionValue))
		add("notification_status", ValidateNotificationStatus(r.NotificationStatus))
		add("discovery_source", ValidateDiscoverySource(r.DiscoverySource))
		add("onboarding_timeline", ValidateOnboardingTimeline(r.OnboardingTimeline))
	case 3:
		add("accepted_terms", ValidateAcceptedTerms(r.AcceptedTerms))
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate runs every step's rules against the full record. Used by the
// submission adapter as defense in depth before any network call.
func Validate(r ReferralRecord) FieldErrors {
	errs := FieldErrors{}
	for step := 1; step <= StepCount; step++ {
		for field, msg := range ValidateStep(step, r) {
			errs[field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
