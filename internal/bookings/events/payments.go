package events

import (
	"context"

	"healthmatch/internal/bookings/service"
	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/kafka"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"
)

// PaymentEventHandler returns the consumer handler for the payment events topic.
// Events that can never apply are permanent so they land in the DLQ instead of
// being retried; store failures are transient.
func PaymentEventHandler(svc service.BookingService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.PaymentEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.BookingID == "" {
			return kafka.NewPermanentError("payment event without booking_id", kafka.ErrInvalidMessage)
		}

		err := svc.ApplyPaymentEvent(ctx, event)
		switch {
		case err == nil:
			return nil
		case apperrors.HasCode(err, apperrors.CodeNotFound), apperrors.HasCode(err, apperrors.CodeInvalidStatus):
			log.Warn("Discarding payment event",
				"booking_id", event.BookingID,
				"status", event.Status,
				"event_id", msg.GetEventID(),
				"error", err,
			)
			return kafka.NewPermanentError("payment event rejected", err)
		default:
			return kafka.NewTransientError("apply payment event", err)
		}
	}
}
