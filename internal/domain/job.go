package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for tenant-local route dates.
const DateLayout = "2006-01-02"

type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// Optional arrival constraint declared by a job.
type TimeWindow struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Contains reports whether t falls inside the window (inclusive).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Earliest) && !t.After(w.Latest)
}

// Job is a single customer visit scheduled on a tenant-local calendar date.
type Job struct {
	ID              int64
	TenantID        string
	ScheduledDate   string
	Location        Coordinates
	Address         string
	CustomerName    string
	CustomerPhone   string
	ServiceDuration time.Duration
	Window          *TimeWindow
	Status          JobStatus
}

// Eligible reports whether the job can be routed for tenantID on date.
func (j *Job) Eligible(tenantID, date string) bool {
	if j.TenantID != tenantID || j.ScheduledDate != date {
		return false
	}
	return j.Status != JobCompleted && j.Status != JobCancelled
}

// Validate checks the fields the optimizer depends on.
func (j *Job) Validate() error {
	if j.ID <= 0 {
		return fmt.Errorf("job: invalid id %d", j.ID)
	}
	if strings.TrimSpace(j.TenantID) == "" {
		return fmt.Errorf("job %d: tenant id is empty", j.ID)
	}
	if _, err := time.Parse(DateLayout, j.ScheduledDate); err != nil {
		return fmt.Errorf("job %d: scheduled date %q: %w", j.ID, j.ScheduledDate, err)
	}
	if !j.Location.Valid() {
		return fmt.Errorf("job %d: invalid location %v", j.ID, j.Location)
	}
	if j.ServiceDuration < 0 {
		return fmt.Errorf("job %d: negative service duration", j.ID)
	}
	if j.Window != nil && j.Window.Latest.Before(j.Window.Earliest) {
		return errors.New("job time window ends before it starts")
	}
	return nil
}
