package model

// UserProfile is the subset of the user directory record the booking service reads.
type UserProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogService is the subset of a catalog entry the booking service reads.
type CatalogService struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Price    int64  `json:"price"`
}

type PaymentIntentRequest struct {
	BookingID      string `json:"booking_id"`
	ClientID       string `json:"client_id"`
	ProfessionalID string `json:"professional_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// PaymentEvent is published by the payment processor when an intent settles.
type PaymentEvent struct {
	BookingID       string `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}
