package domain

import (
	"fmt"
	"strings"
)

// Field team starting its day at a depot, limited to Capacity jobs per day.
type Team struct {
	ID         int64
	TenantID   string
	Name       string
	LeadChatID string
	Depot      Coordinates
	Capacity   int
	Active     bool
}

func (t *Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team: invalid id %d", t.ID)
	}
	if strings.TrimSpace(t.TenantID) == "" {
		return fmt.Errorf("team %d: tenant id is empty", t.ID)
	}
	if !t.Depot.Valid() {
		return fmt.Errorf("team %d: invalid depot %v", t.ID, t.Depot)
	}
	if t.Capacity < 0 {
		return fmt.Errorf("team %d: negative capacity", t.ID)
	}
	return nil
}
