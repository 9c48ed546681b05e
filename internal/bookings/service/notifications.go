package service

import (
	"fmt"
	"time"

	"healthmatch/pkg/model"
)

const appointmentLayout = "02/01/2006 at 15:04"

func appointment(b *model.Booking) string {
	return b.DateTime.UTC().Format(appointmentLayout)
}

func bookingCreatedNotification(b *model.Booking, names partyNames) model.NotificationRequest {
	return model.NotificationRequest{
		RecipientID: b.ClientID,
		SenderID:    b.ProfessionalID,
		Title:       "Booking placed",
		Content: fmt.Sprintf("You booked an appointment with %s for %s on %s.",
			names.professional, names.service, appointment(b)),
		Type: model.NotificationBookingCreated,
		MetaData: map[string]any{
			"booking_id":      b.ID,
			"professional_id": b.ProfessionalID,
			"service_id":      b.ServiceID,
			"date_time":       b.DateTime.UTC().Format(time.RFC3339),
		},
	}
}

func newBookingNotification(b *model.Booking, names partyNames) model.NotificationRequest {
	return model.NotificationRequest{
		RecipientID: b.ProfessionalID,
		SenderID:    b.ClientID,
		Title:       "New booking",
		Content: fmt.Sprintf("You received a new booking from %s for %s on %s.",
			names.client, names.service, appointment(b)),
		Type: model.NotificationNewBooking,
		MetaData: map[string]any{
			"booking_id": b.ID,
			"client_id":  b.ClientID,
			"service_id": b.ServiceID,
			"date_time":  b.DateTime.UTC().Format(time.RFC3339),
		},
	}
}

// statusNotification builds the notification for a transition into b.Status.
// It reports false for statuses that notify nobody.
func statusNotification(b *model.Booking, requesterID string, names partyNames) (model.NotificationRequest, bool) {
	switch b.Status {
	case model.BookingStatusConfirmed:
		return model.NotificationRequest{
			RecipientID: b.ClientID,
			SenderID:    requesterID,
			Title:       "Booking confirmed",
			Content: fmt.Sprintf("Your booking with %s for %s on %s has been confirmed.",
				names.professional, names.service, appointment(b)),
			Type: model.NotificationBookingConfirmed,
			MetaData: map[string]any{
				"booking_id": b.ID,
				"date_time":  b.DateTime.UTC().Format(time.RFC3339),
			},
		}, true

	case model.BookingStatusCancelled:
		meta := map[string]any{
			"booking_id": b.ID,
			"date_time":  b.DateTime.UTC().Format(time.RFC3339),
		}
		if b.CancellationReason != "" {
			meta["reason"] = b.CancellationReason
		}
		if requesterID == b.ClientID {
			return model.NotificationRequest{
				RecipientID: b.ProfessionalID,
				SenderID:    requesterID,
				Title:       "Booking cancelled by the client",
				Content: fmt.Sprintf("The booking of %s for %s on %s has been cancelled.",
					names.client, names.service, appointment(b)),
				Type:     model.NotificationBookingCancelled,
				MetaData: meta,
			}, true
		}
		return model.NotificationRequest{
			RecipientID: b.ClientID,
			SenderID:    requesterID,
			Title:       "Booking cancelled",
			Content: fmt.Sprintf("Your booking with %s for %s on %s has been cancelled.",
				names.professional, names.service, appointment(b)),
			Type:     model.NotificationBookingCancelled,
			MetaData: meta,
		}, true

	case model.BookingStatusCompleted:
		return model.NotificationRequest{
			RecipientID: b.ClientID,
			SenderID:    b.ProfessionalID,
			Title:       "Visit completed - leave a review",
			Content: fmt.Sprintf("Your visit with %s has been completed. Would you leave a review?",
				names.professional),
			Type: model.NotificationBookingCompleted,
			MetaData: map[string]any{
				"booking_id":      b.ID,
				"professional_id": b.ProfessionalID,
				"request_review":  true,
			},
		}, true
	}
	return model.NotificationRequest{}, false
}

func paymentConfirmedNotification(b *model.Booking, names partyNames) model.NotificationRequest {
	meta := map[string]any{
		"booking_id":        b.ID,
		"payment_intent_id": b.PaymentIntentID,
	}
	if b.Amount != nil {
		meta["amount"] = *b.Amount
		meta["currency"] = b.Currency
	}
	return model.NotificationRequest{
		RecipientID: b.ClientID,
		Title:       "Payment received",
		Content: fmt.Sprintf("Your payment for %s with %s on %s has been received.",
			names.service, names.professional, appointment(b)),
		Type:     model.NotificationPaymentConfirmed,
		MetaData: meta,
	}
}
