package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/app/wizard"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/daemon"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/domain"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/draft"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/airtable"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

// terminalSessionID is the fixed session used by the interactive wizard, so
// an abandoned run resumes on the next invocation.
const terminalSessionID = "terminal"

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "File a referral interactively from the terminal",
	Long: `Walks through the referral form step by step.

Answers are saved as a draft after every field, so an interrupted run
picks up where it left off. Nothing is sent anywhere until the final
confirmation.`,
	RunE: runWizard,
}

func init() {
	rootCmd.AddCommand(wizardCmd)
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	client := airtable.New(airtable.Config{
		BaseID:   cfg.Airtable.BaseID,
		APIToken: cfg.Airtable.APIToken,
		TableID:  cfg.Airtable.TableID,
		Timeout:  time.Duration(cfg.Airtable.TimeoutSeconds) * time.Second,
	})

	drafts := draft.NewSQLiteStore(db)
	d := newSurveyDriver()
	ctx := cmd.Context()

	m := wizard.New(client)
	if rec, ok, err := drafts.Load(terminalSessionID); err != nil {
		return err
	} else if ok && !rec.IsZero() {
		resume, err := d.Confirm(ctx, ConfirmConfig{
			Message: "Found an unfinished referral. Resume it?",
			Default: true,
		})
		if err != nil {
			return quietAbort(err)
		}
		if resume {
			step := wizard.Step1
			if row, err := db.GetSession(terminalSessionID); err == nil && row != nil {
				step = wizard.Step(row.Step)
			}
			m.Restore(*rec, step)
		} else if err := drafts.Clear(terminalSessionID); err != nil {
			return err
		}
	}

	m.OnChange(func(rec domain.ReferralRecord) {
		if err := drafts.Save(terminalSessionID, rec); err != nil {
			log.Printf("[wizard] save draft: %v", err)
		}
	})
	m.OnClear(func() {
		if err := drafts.Clear(terminalSessionID); err != nil {
			log.Printf("[wizard] clear draft: %v", err)
		}
	})

	persist := func(step wizard.Step) {
		if err := db.UpsertSession(terminalSessionID, int(step)); err != nil {
			log.Printf("[wizard] persist step: %v", err)
		}
	}

	if err := runWizardFlow(ctx, d, m, persist); err != nil {
		return quietAbort(err)
	}

	if receipt := m.Receipt(); receipt != nil {
		if _, err := db.InsertSubmission(receipt.ReferenceCode, receipt.AirtableID, m.Record().ReferredCompanyName); err != nil {
			log.Printf("[wizard] audit log insert for %s: %v", receipt.ReferenceCode, err)
		}
	}
	return nil
}

// quietAbort turns a Ctrl-C into a clean exit; the draft is already saved.
func quietAbort(err error) error {
	if errors.Is(err, ErrAborted) {
		fmt.Println("\nStopped. Your answers are saved; run 'referral wizard' to continue.")
		return nil
	}
	return err
}

// runWizardFlow drives the machine from its current step to completion or
// until the user quits. persist is called after every step transition.
func runWizardFlow(ctx context.Context, d PromptDriver, m *wizard.Machine, persist func(wizard.Step)) error {
	if persist == nil {
		persist = func(wizard.Step) {}
	}
	for {
		switch m.Step() {
		case wizard.Step1:
			if err := promptReferrer(ctx, d, m); err != nil {
				return err
			}
			if errs, err := m.Next(); err != nil {
				return err
			} else if errs != nil {
				if err := showFieldErrors(ctx, d, errs); err != nil {
					return err
				}
				continue
			}
			persist(m.Step())

		case wizard.Step2:
			action, err := promptBusiness(ctx, d, m)
			if err != nil {
				return err
			}
			switch action {
			case actionBack:
				if err := m.Back(); err != nil {
					return err
				}
				persist(m.Step())
			case actionQuit:
				return nil
			default:
				if errs, err := m.Next(); err != nil {
					return err
				} else if errs != nil {
					if err := showFieldErrors(ctx, d, errs); err != nil {
						return err
					}
					continue
				}
				persist(m.Step())
			}

		case wizard.Step3:
			action, err := promptReview(ctx, d, m)
			if err != nil {
				return err
			}
			switch action {
			case actionBack:
				if err := m.Back(); err != nil {
					return err
				}
				persist(m.Step())
			case actionQuit:
				return nil
			case actionReview:
				// Loop back to the summary.
			default:
				done, err := submitWithRetry(ctx, d, m)
				if err != nil {
					return err
				}
				if !done {
					return nil
				}
				persist(m.Step())
			}

		case wizard.Complete:
			receipt := m.Receipt()
			return d.Info(ctx, fmt.Sprintf(
				"\nReferral submitted. Reference code: %s\nKeep this code for any follow-up with the Karbon team.",
				receipt.ReferenceCode))
		}
	}
}

const (
	actionContinue = 0
	actionBack     = 1
	actionQuit     = 2
	actionReview   = 3
)

// vs adapts a domain field rule to a prompt validator.
func vs(check func(string) string) func(string) error {
	return func(v string) error {
		if msg := check(v); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func promptReferrer(ctx context.Context, d PromptDriver, m *wizard.Machine) error {
	rec := m.Record()
	if err := d.Info(ctx, "Step 1 of 3 — About you"); err != nil {
		return err
	}

	name, err := d.Input(ctx, InputConfig{Message: "Your name:", Default: rec.ReferrerName, Validator: vs(domain.ValidateName)})
	if err != nil {
		return err
	}
	email, err := d.Input(ctx, InputConfig{Message: "Your email:", Default: rec.ReferrerEmail, Validator: vs(domain.ValidateEmail)})
	if err != nil {
		return err
	}
	phone, err := d.Input(ctx, InputConfig{
		Message:   "Your phone (10 digits):",
		Default:   rec.ReferrerPhone,
		Help:      "Indian mobile number without the +91 prefix",
		Validator: vs(domain.ValidatePhone),
	})
	if err != nil {
		return err
	}
	company, err := d.Input(ctx, InputConfig{Message: "Your company:", Default: rec.ReferrerCompany, Validator: vs(domain.ValidateCompany)})
	if err != nil {
		return err
	}

	return m.Update(func(r *domain.ReferralRecord) {
		r.ReferrerName = name
		r.ReferrerEmail = email
		r.ReferrerPhone = phone
		r.ReferrerCompany = company
	})
}

func promptBusiness(ctx context.Context, d PromptDriver, m *wizard.Machine) (int, error) {
	rec := m.Record()
	if err := d.Info(ctx, "Step 2 of 3 — The business you're referring"); err != nil {
		return 0, err
	}

	company, err := d.Input(ctx, InputConfig{Message: "Business name:", Default: rec.ReferredCompanyName, Validator: vs(domain.ValidateCompany)})
	if err != nil {
		return 0, err
	}
	contact, err := d.Input(ctx, InputConfig{Message: "Contact person:", Default: rec.ReferredContactName, Validator: vs(domain.ValidateName)})
	if err != nil {
		return 0, err
	}
	email, err := d.Input(ctx, InputConfig{Message: "Contact email:", Default: rec.ReferredEmail, Validator: vs(domain.ValidateEmail)})
	if err != nil {
		return 0, err
	}
	phone, err := d.Input(ctx, InputConfig{Message: "Contact phone (10 digits):", Default: rec.ReferredPhone, Validator: vs(domain.ValidatePhone)})
	if err != nil {
		return 0, err
	}

	valueDefault := ""
	if rec.TransactionValue != 0 {
		valueDefault = strconv.FormatInt(rec.TransactionValue, 10)
	}
	valueStr, err := d.Input(ctx, InputConfig{
		Message: "Estimated monthly FX volume (₹):",
		Default: valueDefault,
		Help: fmt.Sprintf("Between %d and %d",
			domain.MinTransactionValue, domain.MaxTransactionValue),
		Validator: func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errors.New("enter a whole number")
			}
			if msg := domain.ValidateTransactionValue(n); msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	value, _ := strconv.ParseInt(valueStr, 10, 64)

	notified, err := selectOption(ctx, d, "Have they been told to expect our call?",
		optionStrings(domain.NotificationStatuses()), string(rec.NotificationStatus))
	if err != nil {
		return 0, err
	}
	source, err := selectOption(ctx, d, "How did you hear about the referral program?",
		optionStrings(domain.DiscoverySources()), string(rec.DiscoverySource))
	if err != nil {
		return 0, err
	}
	timeline, err := selectOption(ctx, d, "When could they onboard?",
		optionStrings(domain.OnboardingTimelines()), string(rec.OnboardingTimeline))
	if err != nil {
		return 0, err
	}

	if err := m.Update(func(r *domain.ReferralRecord) {
		r.ReferredCompanyName = company
		r.ReferredContactName = contact
		r.ReferredEmail = email
		r.ReferredPhone = phone
		r.TransactionValue = value
		r.NotificationStatus = domain.NotificationStatus(notified)
		r.DiscoverySource = domain.DiscoverySource(source)
		r.OnboardingTimeline = domain.OnboardingTimeline(timeline)
	}); err != nil {
		return 0, err
	}

	return d.Select(ctx, SelectConfig{
		Message: "Next:",
		Options: []string{"Continue to review", "Go back to step 1", "Save and quit"},
	})
}

func promptReview(ctx context.Context, d PromptDriver, m *wizard.Machine) (int, error) {
	rec := m.Record()
	summary := fmt.Sprintf(`Step 3 of 3 — Review and submit

  Referrer:  %s <%s>, %s (%s)
  Business:  %s — %s <%s>, %s
  Volume:    ₹%d
  Notified:  %s   Heard via: %s   Timeline: %s`,
		rec.ReferrerName, rec.ReferrerEmail, rec.ReferrerPhone, rec.ReferrerCompany,
		rec.ReferredCompanyName, rec.ReferredContactName, rec.ReferredEmail, rec.ReferredPhone,
		rec.TransactionValue,
		rec.NotificationStatus, rec.DiscoverySource, rec.OnboardingTimeline)
	if err := d.Info(ctx, summary); err != nil {
		return 0, err
	}

	accepted, err := d.Confirm(ctx, ConfirmConfig{
		Message: "The referred business has agreed to be contacted. Confirm?",
		Default: rec.AcceptedTerms,
	})
	if err != nil {
		return 0, err
	}
	if err := m.Update(func(r *domain.ReferralRecord) {
		r.AcceptedTerms = accepted
	}); err != nil {
		return 0, err
	}
	if !accepted {
		if err := d.Info(ctx, "Consent is required before submission."); err != nil {
			return 0, err
		}
		idx, err := d.Select(ctx, SelectConfig{
			Message: "Next:",
			Options: []string{"Review again", "Go back to step 2", "Save and quit"},
		})
		if err != nil {
			return 0, err
		}
		// "Review again" must not fall through to submission.
		return [...]int{actionReview, actionBack, actionQuit}[idx], nil
	}

	return d.Select(ctx, SelectConfig{
		Message: "Next:",
		Options: []string{"Submit referral", "Go back to step 2", "Save and quit"},
	})
}

// submitWithRetry submits the referral, offering a manual retry after
// transient failures on top of the client's own backoff. Returns false when
// the user gives up; the draft stays intact for a later run.
func submitWithRetry(ctx context.Context, d PromptDriver, m *wizard.Machine) (bool, error) {
	for {
		_, err := m.Submit(ctx)
		if err == nil {
			return true, nil
		}

		kind := domain.ClassifySubmission(err)
		if err := d.Info(ctx, "Submission failed: "+kind.UserMessage()); err != nil {
			return false, err
		}
		if !kind.Retryable() {
			return false, nil
		}
		again, err := d.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if err != nil {
			return false, err
		}
		if !again {
			return false, nil
		}
	}
}

func showFieldErrors(ctx context.Context, d PromptDriver, errs domain.FieldErrors) error {
	for _, field := range errs.Fields() {
		if err := d.Info(ctx, fmt.Sprintf("  %s: %s", field, errs[field])); err != nil {
			return err
		}
	}
	return nil
}

func selectOption(ctx context.Context, d PromptDriver, message string, options []string, current string) (string, error) {
	defaultIndex := 0
	for i, option := range options {
		if option == current {
			defaultIndex = i
		}
	}
	idx, err := d.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: defaultIndex,
	})
	if err != nil {
		return "", err
	}
	return options[idx], nil
}

func optionStrings[T ~string](options []T) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = string(o)
	}
	return out
}
