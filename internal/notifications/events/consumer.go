package events

import (
	"context"

	"healthmatch/internal/notifications/service"
	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/kafka"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"
)

// NotificationRequestHandler stores notification requests published on the
// notification topic. Invalid requests are permanent; store failures are retried.
func NotificationRequestHandler(svc service.NotificationService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var req model.NotificationRequest
		if err := msg.DecodeValue(&req); err != nil {
			return err
		}

		n, err := svc.Record(ctx, &req)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeValidation) {
				return kafka.NewPermanentError("invalid notification request", err)
			}
			return kafka.NewTransientError("store notification", err)
		}

		log.Debug("Notification stored from event",
			"id", n.ID,
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
		)
		return nil
	}
}
