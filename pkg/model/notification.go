package model

import "time"

const (
	NotificationBookingCreated   = "booking_created"
	NotificationNewBooking       = "new_booking"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationBookingCompleted = "booking_completed"
	NotificationPaymentConfirmed = "payment_confirmed"
)

// NotificationRequest is the payload accepted by the notification dispatcher,
// over HTTP or as a Kafka message value.
type NotificationRequest struct {
	RecipientID string         `json:"recipient_id" validate:"required,max=64"`
	SenderID    string         `json:"sender_id,omitempty" validate:"omitempty,max=64"`
	Title       string         `json:"title" validate:"required,max=200"`
	Content     string         `json:"content" validate:"required,max=2000"`
	Type        string         `json:"type" validate:"required,max=50"`
	MetaData    map[string]any `json:"meta_data,omitempty"`
}

type Notification struct {
	ID          string         `json:"id,omitempty" bson:"_id,omitempty"`
	RecipientID string         `json:"recipient_id" bson:"recipient_id"`
	SenderID    string         `json:"sender_id,omitempty" bson:"sender_id,omitempty"`
	Title       string         `json:"title" bson:"title"`
	Content     string         `json:"content" bson:"content"`
	Type        string         `json:"type" bson:"type"`
	MetaData    map[string]any `json:"meta_data,omitempty" bson:"meta_data,omitempty"`
	IsRead      bool           `json:"is_read" bson:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
	Offset      int64
}
