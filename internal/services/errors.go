package services

import "errors"

// Cycle-level error taxonomy. Distance degradation and per-recipient
// notification failures are not errors; they surface as warnings and
// RecipientErrors on the result.
var (
	// ErrConfigurationSkip marks a tenant excluded for missing or invalid settings or records.
	ErrConfigurationSkip = errors.New("configuration skip")
	// ErrNoEligibleWork marks a tenant with no jobs or no teams for the date.
	ErrNoEligibleWork = errors.New("no eligible work")
	// ErrPersistence marks a failed assignment replace; dispatch must not run.
	ErrPersistence = errors.New("persistence failure")
	// ErrCycleInProgress marks a (tenant, date) already held by another writer.
	ErrCycleInProgress = errors.New("cycle already in progress")
)

type Outcome string

const (
	OutcomeDispatched        Outcome = "dispatched"
	OutcomeNotDue            Outcome = "not_due"
	OutcomeConfigurationSkip Outcome = "configuration_skip"
	OutcomeNoWork            Outcome = "no_eligible_work"
	OutcomeInProgress        Outcome = "in_progress"
	OutcomePersistenceFailed Outcome = "persistence_failed"
	OutcomeFailed            Outcome = "failed"
)

// Classify maps a per-tenant error onto the outcome reported to operators.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDispatched
	case errors.Is(err, ErrConfigurationSkip):
		return OutcomeConfigurationSkip
	case errors.Is(err, ErrNoEligibleWork):
		return OutcomeNoWork
	case errors.Is(err, ErrCycleInProgress):
		return OutcomeInProgress
	case errors.Is(err, ErrPersistence):
		return OutcomePersistenceFailed
	default:
		return OutcomeFailed
	}
}
