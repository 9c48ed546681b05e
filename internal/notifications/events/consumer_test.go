package events

import (
	"context"
	"errors"
	"testing"

	"healthmatch/internal/notifications/service"
	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/kafka"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"
)

type mockNotificationService struct {
	service.NotificationService
	recordFunc func(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error)
}

func (m *mockNotificationService) Record(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error) {
	return m.recordFunc(ctx, req)
}

func TestNotificationRequestHandler(t *testing.T) {
	tests := []struct {
		name      string
		recordErr error
		wantType  kafka.ErrorType
	}{
		{name: "stored", wantType: kafka.ErrorTypeUnknown},
		{name: "invalid request", recordErr: apperrors.Validation("Invalid notification data", nil), wantType: kafka.ErrorTypePermanent},
		{name: "store unavailable", recordErr: apperrors.Persistence("create notification", errors.New("down")), wantType: kafka.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received *model.NotificationRequest
			svc := &mockNotificationService{recordFunc: func(_ context.Context, req *model.NotificationRequest) (*model.Notification, error) {
				received = req
				if tt.recordErr != nil {
					return nil, tt.recordErr
				}
				return &model.Notification{ID: "n1"}, nil
			}}

			msg, err := kafka.NewMessage().
				WithKey("u1").
				WithValue(model.NotificationRequest{RecipientID: "u1", Title: "t", Content: "c", Type: "x"}).
				Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}

			err = NotificationRequestHandler(svc, logger.Discard())(context.Background(), msg)

			if received == nil || received.RecipientID != "u1" {
				t.Errorf("unexpected request passed to service %+v", received)
			}
			if got := kafka.ClassifyError(err); got != tt.wantType {
				t.Errorf("error type = %v, want %v (err %v)", got, tt.wantType, err)
			}
		})
	}
}
