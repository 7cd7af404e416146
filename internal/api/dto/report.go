package dto

import (
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/services"
	"time"
)

type TenantStatsResponse struct {
	Jobs                  int `json:"jobs"`
	Assignments           int `json:"assignments"`
	JobsUpdated           int `json:"jobs_updated"`
	TeamNotifications     int `json:"team_notifications"`
	CustomerNotifications int `json:"customer_notifications"`
	Errors                int `json:"errors"`
}

type RecipientErrorResponse struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

type TenantReportResponse struct {
	TenantID   string                   `json:"tenant_id"`
	Dispatched bool                     `json:"dispatched"`
	Outcome    string                   `json:"outcome"`
	Reason     string                   `json:"reason,omitempty"`
	Date       string                   `json:"date,omitempty"`
	Stats      TenantStatsResponse      `json:"stats"`
	Warnings   []string                 `json:"warnings"`
	Errors     []RecipientErrorResponse `json:"errors"`
}

type DispatchReportResponse struct {
	RanAt   time.Time              `json:"ran_at"`
	Results []TenantReportResponse `json:"results"`
}

// NewDispatchReportResponse maps a batch report onto the wire shape. Empty
// lists are emitted as [] rather than null.
func NewDispatchReportResponse(r services.Report) DispatchReportResponse {
	out := DispatchReportResponse{
		RanAt:   r.RanAt,
		Results: make([]TenantReportResponse, 0, len(r.Results)),
	}
	for _, t := range r.Results {
		warnings := t.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		out.Results = append(out.Results, TenantReportResponse{
			TenantID:   t.TenantID,
			Dispatched: t.Dispatched,
			Outcome:    string(t.Outcome),
			Reason:     t.Reason,
			Date:       t.Date,
			Stats: TenantStatsResponse{
				Jobs:                  t.Stats.Jobs,
				Assignments:           t.Stats.Assignments,
				JobsUpdated:           t.Stats.JobsUpdated,
				TeamNotifications:     t.Stats.TeamNotifications,
				CustomerNotifications: t.Stats.CustomerNotifications,
				Errors:                t.Stats.Errors,
			},
			Warnings: warnings,
			Errors:   recipientErrors(t.Errors),
		})
	}
	return out
}

func recipientErrors(errs []domain.RecipientError) []RecipientErrorResponse {
	out := make([]RecipientErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, RecipientErrorResponse{
			Channel:   string(e.Channel),
			Recipient: e.Recipient,
			Reason:    e.Reason,
		})
	}
	return out
}
