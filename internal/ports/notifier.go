package ports

import "context"

// Sends a formatted route to a team lead's messaging identity.
type TeamNotifier interface {
	SendToTeamLead(ctx context.Context, identity, text string) (string, error)
}

// Sends a text message to a customer phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) (string, error)
}
