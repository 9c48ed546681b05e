package testutil

import (
	"time"

	"healthmatch/pkg/model"
)

type BookingRequestBuilder struct {
	req model.BookingRequest
}

func NewBookingRequestBuilder() *BookingRequestBuilder {
	return &BookingRequestBuilder{
		req: model.BookingRequest{
			ClientID:       "client-1",
			ProfessionalID: "pro-1",
			ServiceID:      "svc-1",
			DateTime:       time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second),
			Notes:          "First visit",
		},
	}
}

func (b *BookingRequestBuilder) WithClient(id string) *BookingRequestBuilder {
	b.req.ClientID = id
	return b
}

func (b *BookingRequestBuilder) WithProfessional(id string) *BookingRequestBuilder {
	b.req.ProfessionalID = id
	return b
}

func (b *BookingRequestBuilder) WithDateTime(t time.Time) *BookingRequestBuilder {
	b.req.DateTime = t.UTC()
	return b
}

func (b *BookingRequestBuilder) Build() model.BookingRequest {
	return b.req
}

// SeedBooking returns a stored booking for client-1 and pro-1 starting in `in`.
func SeedBooking(status string, in time.Duration) model.Booking {
	return model.Booking{
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		ServiceID:      "svc-1",
		DateTime:       time.Now().Add(in).UTC().Truncate(time.Millisecond),
		Status:         status,
		PaymentStatus:  model.PaymentStatusNone,
		LastUpdatedBy:  "client-1",
	}
}
