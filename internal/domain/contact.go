package domain

import "time"

// ContactLead is a visitor who asked to be contacted. Leads are
// recorded through the record_user_details tool and kept alongside the
// conversation they came from.
type ContactLead struct {
	ID             string
	ConversationID string
	Email          string
	Name           string
	Notes          string
	CreatedAt      time.Time
}
