package models

import "time"

// ChatMessage is one message in a tenant-landlord conversation, scoped to a
// property.
type ChatMessage struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	SenderID   int64     `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
