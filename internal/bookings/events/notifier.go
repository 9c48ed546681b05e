package events

import (
	"context"

	"healthmatch/pkg/kafka"
	"healthmatch/pkg/model"
)

const (
	EventNotificationRequested = "notification.requested"
	notificationSchemaVersion  = "1"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaNotifier publishes notification requests keyed by recipient so one
// recipient's notifications stay ordered on a partition.
type KafkaNotifier struct {
	publisher Publisher
	source    string
}

func NewKafkaNotifier(publisher Publisher, source string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, source: source}
}

func (n *KafkaNotifier) Send(ctx context.Context, req model.NotificationRequest) error {
	correlationID, _ := req.MetaData["booking_id"].(string)

	msg, err := kafka.NewMessage().
		WithKey(req.RecipientID).
		WithValue(req).
		WithEventType(EventNotificationRequested).
		WithSchemaVersion(notificationSchemaVersion).
		WithSource(n.source).
		WithCorrelationID(correlationID).
		Build()
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, msg)
}
