package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	notificationerrors "healthmatch/internal/notifications/errors"
	"healthmatch/internal/notifications/repository"
	"healthmatch/internal/notifications/validator"
	"healthmatch/pkg/auth"
	"healthmatch/pkg/config"
	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"
	"healthmatch/pkg/sanitizer"
)

type NotificationService interface {
	// Create stores a notification. Only elevated callers may create through the API;
	// the Kafka consumer calls Record directly.
	Create(ctx context.Context, requester auth.Principal, req *model.NotificationRequest) (*model.Notification, error)
	Record(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error)
	GetByID(ctx context.Context, requester auth.Principal, id string) (*model.Notification, error)
	ListForUser(ctx context.Context, requester auth.Principal, filter model.NotificationFilter) ([]*model.Notification, int64, error)
	UnreadCount(ctx context.Context, requester auth.Principal, userID string) (int64, error)
	MarkRead(ctx context.Context, requester auth.Principal, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, requester auth.Principal, userID string) (int64, error)
	Delete(ctx context.Context, requester auth.Principal, id string) error
}

type notificationService struct {
	repo      repository.NotificationRepository
	validator *validator.NotificationValidator
	log       *logger.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	validator *validator.NotificationValidator,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		repo:      repo,
		validator: validator,
		log:       log,
	}
}

func (s *notificationService) Create(ctx context.Context, requester auth.Principal, req *model.NotificationRequest) (*model.Notification, error) {
	if !requester.IsElevated() {
		return nil, apperrors.Forbidden("Only services can create notifications")
	}
	return s.Record(ctx, req)
}

func (s *notificationService) Record(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error) {
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	req.SenderID = strings.TrimSpace(req.SenderID)
	req.Title = sanitizer.TrimAndNormalize(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Type = sanitizer.NormalizeToken(req.Type)

	if err := s.validator.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Invalid notification data", map[string]any{"errors": verrs})
		}
		return nil, apperrors.Internal("Failed to validate notification", err)
	}

	n := &model.Notification{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		MetaData:    req.MetaData,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error("Failed to create notification", "recipient_id", n.RecipientID, "type", n.Type, "error", err)
		return nil, apperrors.Persistence("create notification", err)
	}

	s.log.Info("Notification created", "id", n.ID, "recipient_id", n.RecipientID, "type", n.Type)
	return n, nil
}

// GetByID returns a notification to its recipient or an elevated caller.
// Anyone else gets NOT_FOUND so ids of other users' notifications are not confirmed.
func (s *notificationService) GetByID(ctx context.Context, requester auth.Principal, id string) (*model.Notification, error) {
	id = strings.TrimSpace(id)
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError("retrieve notification", id, err)
	}
	if n.RecipientID != requester.UserID && !requester.IsElevated() {
		return nil, apperrors.NotFoundWithID("Notification", id)
	}
	return n, nil
}

func (s *notificationService) ListForUser(ctx context.Context, requester auth.Principal, filter model.NotificationFilter) ([]*model.Notification, int64, error) {
	if err := authorizeUser(requester, &filter.RecipientID); err != nil {
		return nil, 0, err
	}
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var notifications []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByRecipient(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		notifications, errFind = s.repo.FindByRecipient(ctx, filter)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.log.Error("Failed to list notifications", "recipient_id", filter.RecipientID, "error", err)
		return nil, 0, apperrors.Persistence("retrieve notifications", err)
	}
	return notifications, count, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, requester auth.Principal, userID string) (int64, error) {
	if err := authorizeUser(requester, &userID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountByRecipient(ctx, model.NotificationFilter{RecipientID: userID, UnreadOnly: true})
	if err != nil {
		return 0, apperrors.Persistence("count notifications", err)
	}
	return count, nil
}

// MarkRead only touches the requester's own notifications; anything else is NOT_FOUND.
func (s *notificationService) MarkRead(ctx context.Context, requester auth.Principal, id string) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, strings.TrimSpace(id), requester.UserID)
	if err != nil {
		return nil, s.mapError("mark notification read", id, err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, requester auth.Principal, userID string) (int64, error) {
	if err := authorizeUser(requester, &userID); err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.log.Error("Failed to mark notifications read", "recipient_id", userID, "error", err)
		return 0, apperrors.Persistence("mark notifications read", err)
	}
	s.log.Info("Notifications marked read", "recipient_id", userID, "count", count)
	return count, nil
}

func (s *notificationService) Delete(ctx context.Context, requester auth.Principal, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id), requester.UserID); err != nil {
		return s.mapError("delete notification", id, err)
	}
	s.log.Info("Notification deleted", "id", id, "recipient_id", requester.UserID)
	return nil
}

func (s *notificationService) mapError(op, id string, err error) error {
	switch {
	case errors.Is(err, notificationerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Notification", id)
	case errors.Is(err, notificationerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid notification ID format")
	default:
		s.log.Error("Notification store failure", "operation", op, "id", id, "error", err)
		return apperrors.Persistence(op, err)
	}
}

func authorizeUser(requester auth.Principal, userID *string) error {
	*userID = strings.TrimSpace(*userID)
	if *userID == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}
	if requester.UserID != *userID && !requester.IsElevated() {
		return apperrors.Forbidden("You can only access your own notifications")
	}
	return nil
}
