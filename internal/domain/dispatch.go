package domain

type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelSMS      Channel = "sms"
)

// One failed notification attempt.
type RecipientError struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Reason    string  `json:"reason"`
}

// DispatchResult summarizes one tenant's persistence and notification outcome.
type DispatchResult struct {
	JobsUpdated        int              `json:"jobs_updated"`
	AssignmentsCreated int              `json:"assignments_created"`
	TelegramsSent      int              `json:"telegrams_sent"`
	SMSSent            int              `json:"sms_sent"`
	Errors             []RecipientError `json:"errors"`
}
