package models

import "time"

// SMSLog represents a sent SMS message
type SMSLog struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Phone        string     `json:"phone"`
	MessageType  string     `json:"message_type"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ReferenceID  string     `json:"reference_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// SMS message types
const (
	SMSTypePaymentReceived = "payment_received"
	SMSTypePaymentFailed   = "payment_failed"
	SMSTypeReceiptReady    = "receipt_ready"
	SMSTypePayoutCompleted = "payout_completed"
	SMSTypeRentReminder    = "rent_reminder"
	SMSTypeRentExpired     = "rent_expired"
)

// SMS status types
const (
	SMSStatusPending = "pending"
	SMSStatusSent    = "sent"
	SMSStatusFailed  = "failed"
)
