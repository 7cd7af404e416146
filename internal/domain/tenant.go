package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDispatchHour      = 3
	DefaultShiftStartMinutes = 8 * 60
	DefaultETAWindowMinutes  = 60
)

// Tenant is an isolated business unit with its own timezone and dispatch settings.
// It is treated as immutable for the duration of one optimization run.
type Tenant struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Timezone                 string `json:"timezone"`
	DispatchHour             int    `json:"dispatch_hour"`
	RouteOptimizationEnabled bool   `json:"route_optimization_enabled"`
	ShiftStartMinutes        int    `json:"shift_start_minutes"`
	ETAWindowMinutes         int    `json:"eta_window_minutes"`
}

func (t Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant id is empty")
	}
	if t.DispatchHour < 0 || t.DispatchHour > 23 {
		return fmt.Errorf("tenant %s: dispatch hour %d out of range", t.ID, t.DispatchHour)
	}
	if t.ShiftStartMinutes < 0 || t.ShiftStartMinutes >= 24*60 {
		return fmt.Errorf("tenant %s: shift start %d minutes out of range", t.ID, t.ShiftStartMinutes)
	}
	if t.ETAWindowMinutes < 0 {
		return fmt.Errorf("tenant %s: negative eta window", t.ID)
	}
	if t.Timezone != "" {
		if _, err := time.LoadLocation(t.Timezone); err != nil {
			return fmt.Errorf("tenant %s: timezone %q: %w", t.ID, t.Timezone, err)
		}
	}
	return nil
}

// ETAWindow returns the configured arrival slack, falling back to the default.
func (t Tenant) ETAWindow() time.Duration {
	if t.ETAWindowMinutes <= 0 {
		return DefaultETAWindowMinutes * time.Minute
	}
	return time.Duration(t.ETAWindowMinutes) * time.Minute
}

// ShiftStart returns the local start of the working day for date in loc.
func (t Tenant) ShiftStart(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift start: parse date %q: %w", date, err)
	}
	minutes := t.ShiftStartMinutes
	if minutes == 0 {
		minutes = DefaultShiftStartMinutes
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}
