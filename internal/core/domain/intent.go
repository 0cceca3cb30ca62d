package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingIntent is a payment that could not be attempted while offline.
// It is removed on successful replay or on permanent failure (contact gone).
type PendingIntent struct {
	ID        uuid.UUID `json:"id"`
	ContactID string    `json:"contact_id"`
	AmountSat uint64    `json:"amount_sat"`
	CreatedAt time.Time `json:"created_at"`
	MessageID *string   `json:"message_id,omitempty"` // Client-assigned chat message id, if any
}

// NewPendingIntent builds a queued intent for the given contact and amount.
func NewPendingIntent(contactID string, amountSat uint64, messageID *string) *PendingIntent {
	return &PendingIntent{
		ID:        uuid.New(),
		ContactID: contactID,
		AmountSat: amountSat,
		CreatedAt: time.Now().UTC(),
		MessageID: messageID,
	}
}
