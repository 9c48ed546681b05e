package model

import (
	"slices"
	"time"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

const (
	PaymentStatusNone     = "none"
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
)

var BookingStatuses = []string{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

var PaymentStatuses = []string{
	PaymentStatusNone,
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusRefunded,
	PaymentStatusFailed,
}

func IsValidBookingStatus(status string) bool {
	return slices.Contains(BookingStatuses, status)
}

func IsValidPaymentStatus(status string) bool {
	return slices.Contains(PaymentStatuses, status)
}

type Booking struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty"`
	ClientID           string    `json:"client_id" bson:"client_id"`
	ProfessionalID     string    `json:"professional_id" bson:"professional_id"`
	ServiceID          string    `json:"service_id" bson:"service_id"`
	DateTime           time.Time `json:"date_time" bson:"date_time"`
	Status             string    `json:"status" bson:"status"`
	PaymentStatus      string    `json:"payment_status" bson:"payment_status"`
	PaymentIntentID    string    `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	Amount             *int64    `json:"amount,omitempty" bson:"amount,omitempty"`
	Currency           string    `json:"currency,omitempty" bson:"currency,omitempty"`
	LastUpdatedBy      string    `json:"last_updated_by" bson:"last_updated_by"`
	CancellationReason string    `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	Notes              string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// IsParty reports whether userID is the client or the professional of the booking.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (b.ClientID == userID || b.ProfessionalID == userID)
}

// BookingRequest is the body of POST /api/v1/bookings.
type BookingRequest struct {
	ClientID       string    `json:"client_id" validate:"required,max=64"`
	ProfessionalID string    `json:"professional_id" validate:"required,max=64,nefield=ClientID"`
	ServiceID      string    `json:"service_id" validate:"required,max=64"`
	DateTime       time.Time `json:"date_time" validate:"required,future"`
	Notes          string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Amount         *int64    `json:"amount,omitempty" validate:"omitempty,min=0"`
	Currency       string    `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// BookingUpdate is the body of PUT /api/v1/bookings/id/:id. Every field is optional.
// Status is validated against the enum by the service so the caller gets INVALID_STATUS.
type BookingUpdate struct {
	Status             string     `json:"status,omitempty"`
	DateTime           *time.Time `json:"date_time,omitempty" validate:"omitempty,future"`
	Notes              *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" validate:"omitempty,max=500"`
}

// BookingPatch is the set of fields the store writes on update. Nil fields are left untouched.
type BookingPatch struct {
	Status             *string
	PaymentStatus      *string
	PaymentIntentID    *string
	DateTime           *time.Time
	Notes              *string
	CancellationReason *string
	LastUpdatedBy      *string
}

// IsEmpty reports whether the patch carries no changes.
func (p BookingPatch) IsEmpty() bool {
	return p.Status == nil && p.PaymentStatus == nil && p.PaymentIntentID == nil &&
		p.DateTime == nil && p.Notes == nil && p.CancellationReason == nil && p.LastUpdatedBy == nil
}

// BookingFilter selects bookings where the user is either party.
type BookingFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int64
}

// BookingResult is returned by create and update.
type BookingResult struct {
	Booking          *Booking `json:"booking"`
	ClientName       string   `json:"client_name,omitempty"`
	ProfessionalName string   `json:"professional_name,omitempty"`
	ServiceName      string   `json:"service_name,omitempty"`
	PaymentSecret    string   `json:"payment_client_secret,omitempty"`
	Message          string   `json:"message"`
}

// BookingDetail is returned by GET /api/v1/bookings/id/:id.
type BookingDetail struct {
	*Booking
	ClientName       string `json:"client_name"`
	ProfessionalName string `json:"professional_name"`
	ServiceName      string `json:"service_name"`
	ServiceDuration  int    `json:"service_duration,omitempty"`
}

// BookingSummary is one row of a user's booking list.
type BookingSummary struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	ProfessionalID   string    `json:"professional_id"`
	ServiceID        string    `json:"service_id"`
	DateTime         time.Time `json:"date_time"`
	Status           string    `json:"status"`
	PaymentStatus    string    `json:"payment_status"`
	Amount           *int64    `json:"amount,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	ClientName       string    `json:"client_name"`
	ProfessionalName string    `json:"professional_name"`
	ServiceName      string    `json:"service_name"`
	IsClient         bool      `json:"is_client"`
}
