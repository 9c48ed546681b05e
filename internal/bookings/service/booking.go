package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	bookingserrors "healthmatch/internal/bookings/errors"
	"healthmatch/internal/bookings/repository"
	"healthmatch/internal/bookings/validator"
	"healthmatch/pkg/auth"
	"healthmatch/pkg/config"
	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/metrics"
	"healthmatch/pkg/model"
	"healthmatch/pkg/sanitizer"
)

const (
	MessageBookingCreated = "Booking created successfully"
	MessageBookingUpdated = "Booking updated successfully"
)

type BookingService interface {
	Create(ctx context.Context, requester auth.Principal, req *model.BookingRequest) (*model.BookingResult, error)
	GetByID(ctx context.Context, requester auth.Principal, id string) (*model.BookingDetail, error)
	ListForUser(ctx context.Context, requester auth.Principal, filter model.BookingFilter) ([]*model.BookingSummary, int64, error)
	Update(ctx context.Context, requester auth.Principal, id string, update *model.BookingUpdate) (*model.BookingResult, error)
	UpdateStatus(ctx context.Context, requester auth.Principal, id string, status string) (*model.BookingResult, error)
	Cancel(ctx context.Context, requester auth.Principal, id string, reason string) (*model.BookingResult, error)
	ApplyPaymentEvent(ctx context.Context, event model.PaymentEvent) error
}

type Directory interface {
	GetUser(ctx context.Context, id string) (*model.UserProfile, error)
}

type Catalog interface {
	GetService(ctx context.Context, id string) (*model.CatalogService, error)
}

type Notifier interface {
	Send(ctx context.Context, req model.NotificationRequest) error
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error)
}

// Collaborators are the services the orchestrator calls after the store write.
type Collaborators struct {
	Directory Directory
	Catalog   Catalog
	Notifier  Notifier
	Payments  PaymentGateway
}

type Policy struct {
	CancellationWindow  time.Duration
	WindowOnAllUpdates  bool
	CompensateOnPayment bool
	DefaultCurrency     string
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		CancellationWindow:  cfg.CancellationWindow,
		WindowOnAllUpdates:  cfg.CancellationWindowScope == config.CancellationScopeAllUpdates,
		CompensateOnPayment: cfg.PaymentFailurePolicy != config.PaymentPolicyKeep,
		DefaultCurrency:     cfg.DefaultCurrency,
	}
}

type bookingService struct {
	repo          repository.BookingRepository
	validator     *validator.BookingValidator
	collaborators Collaborators
	policy        Policy
	log           *logger.Logger
	now           func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	collaborators Collaborators,
	policy Policy,
	log *logger.Logger,
) BookingService {
	return &bookingService{
		repo:          repo,
		validator:     validator,
		collaborators: collaborators,
		policy:        policy,
		log:           log,
		now:           time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, requester auth.Principal, req *model.BookingRequest) (*model.BookingResult, error) {
	sanitizeRequest(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if requester.UserID != req.ClientID && !requester.IsElevated() {
		return nil, apperrors.Forbidden("You can only create bookings for yourself")
	}

	booking := &model.Booking{
		ClientID:       req.ClientID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		DateTime:       req.DateTime.UTC(),
		Status:         model.BookingStatusPending,
		PaymentStatus:  model.PaymentStatusNone,
		Notes:          req.Notes,
		LastUpdatedBy:  requester.UserID,
	}
	if req.Amount != nil {
		amount := *req.Amount
		booking.Amount = &amount
		booking.Currency = req.Currency
		if booking.Currency == "" {
			booking.Currency = s.policy.DefaultCurrency
		}
		if amount > 0 {
			booking.PaymentStatus = model.PaymentStatusPending
		}
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking", "client_id", booking.ClientID, "error", err)
		return nil, apperrors.Persistence("create booking", err)
	}
	metrics.BookingsCreatedTotal.WithLabelValues(s.repo.Driver()).Inc()

	s.log.Info("Booking created",
		"id", booking.ID,
		"client_id", booking.ClientID,
		"professional_id", booking.ProfessionalID,
		"date_time", booking.DateTime,
	)

	var paymentSecret string
	if booking.Amount != nil && *booking.Amount > 0 {
		updated, secret, err := s.requestPayment(ctx, booking)
		if err != nil {
			return nil, err
		}
		booking, paymentSecret = updated, secret
	}

	names := s.newLookup().resolve(ctx, booking)

	s.dispatch(ctx, bookingCreatedNotification(booking, names))
	s.dispatch(ctx, newBookingNotification(booking, names))

	return &model.BookingResult{
		Booking:          booking,
		ClientName:       names.client,
		ProfessionalName: names.professional,
		ServiceName:      names.service,
		PaymentSecret:    paymentSecret,
		Message:          MessageBookingCreated,
	}, nil
}

// requestPayment creates the payment intent for a freshly stored booking and
// applies the configured failure policy.
func (s *bookingService) requestPayment(ctx context.Context, booking *model.Booking) (*model.Booking, string, error) {
	intent, err := s.collaborators.Payments.CreateIntent(ctx, model.PaymentIntentRequest{
		BookingID:      booking.ID,
		ClientID:       booking.ClientID,
		ProfessionalID: booking.ProfessionalID,
		Amount:         *booking.Amount,
		Currency:       booking.Currency,
	})
	metrics.RecordCollaboratorCall("payments", err)

	if err == nil {
		status := model.PaymentStatusPending
		updated, updateErr := s.repo.Update(ctx, booking.ID, model.BookingPatch{
			PaymentIntentID: &intent.ID,
			PaymentStatus:   &status,
		})
		if updateErr != nil {
			// the intent exists; the payment event consumer reconciles payment_status later
			s.log.Error("Failed to store payment intent on booking",
				"id", booking.ID,
				"payment_intent_id", intent.ID,
				"error", updateErr,
			)
			booking.PaymentIntentID = intent.ID
			return booking, intent.ClientSecret, nil
		}
		return updated, intent.ClientSecret, nil
	}

	if s.policy.CompensateOnPayment {
		s.log.Warn("Payment intent failed, removing booking", "id", booking.ID, "error", err)
		if delErr := s.repo.Delete(ctx, booking.ID); delErr != nil {
			s.log.Error("Failed to remove booking after payment failure", "id", booking.ID, "error", delErr)
		}
		metrics.BookingCompensationsTotal.Inc()
		return nil, "", apperrors.CollaboratorUnavailable("payment processor", err)
	}

	s.log.Warn("Payment intent failed, keeping booking", "id", booking.ID, "error", err)
	failed := model.PaymentStatusFailed
	updated, updateErr := s.repo.Update(ctx, booking.ID, model.BookingPatch{PaymentStatus: &failed})
	if updateErr != nil {
		s.log.Error("Failed to mark booking payment as failed", "id", booking.ID, "error", updateErr)
		booking.PaymentStatus = failed
		return booking, "", nil
	}
	return updated, "", nil
}

func (s *bookingService) GetByID(ctx context.Context, requester auth.Principal, id string) (*model.BookingDetail, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(requester.UserID) && !requester.IsElevated() {
		return nil, apperrors.Forbidden("You are not allowed to view this booking")
	}

	l := s.newLookup()
	names := l.resolve(ctx, booking)

	detail := &model.BookingDetail{
		Booking:          booking,
		ClientName:       names.client,
		ProfessionalName: names.professional,
		ServiceName:      names.service,
	}
	if svc := l.serviceInfo(booking.ServiceID); svc != nil {
		detail.ServiceDuration = svc.Duration
	}
	return detail, nil
}

func (s *bookingService) ListForUser(ctx context.Context, requester auth.Principal, filter model.BookingFilter) ([]*model.BookingSummary, int64, error) {
	filter.UserID = strings.TrimSpace(filter.UserID)
	filter.Status = sanitizer.NormalizeToken(filter.Status)

	if filter.UserID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}
	if requester.UserID != filter.UserID && !requester.IsElevated() {
		return nil, 0, apperrors.Forbidden("You can only list your own bookings")
	}
	if filter.Status != "" && !model.IsValidBookingStatus(filter.Status) {
		return nil, 0, apperrors.InvalidStatus(filter.Status, model.BookingStatuses)
	}
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, filter)
		if errCount != nil {
			s.log.Error("Failed to count bookings", "user_id", filter.UserID, "error", errCount)
			errCount = apperrors.Persistence("count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, filter)
		if errFind != nil {
			s.log.Error("Failed to list bookings", "user_id", filter.UserID, "error", errFind)
			errFind = apperrors.Persistence("retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	l := s.newLookup()
	l.prefetch(ctx, bookings)

	summaries := make([]*model.BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		names := l.resolve(ctx, b)
		summaries = append(summaries, &model.BookingSummary{
			ID:               b.ID,
			ClientID:         b.ClientID,
			ProfessionalID:   b.ProfessionalID,
			ServiceID:        b.ServiceID,
			DateTime:         b.DateTime,
			Status:           b.Status,
			PaymentStatus:    b.PaymentStatus,
			Amount:           b.Amount,
			Notes:            b.Notes,
			ClientName:       names.client,
			ProfessionalName: names.professional,
			ServiceName:      names.service,
			IsClient:         b.ClientID == filter.UserID,
		})
	}
	return summaries, count, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, requester auth.Principal, id string, status string) (*model.BookingResult, error) {
	return s.Update(ctx, requester, id, &model.BookingUpdate{Status: status})
}

func (s *bookingService) Update(ctx context.Context, requester auth.Principal, id string, update *model.BookingUpdate) (*model.BookingResult, error) {
	update.Status = sanitizer.NormalizeToken(update.Status)
	if update.Status != "" && !model.IsValidBookingStatus(update.Status) {
		return nil, apperrors.InvalidStatus(update.Status, model.BookingStatuses)
	}
	sanitizeUpdate(update)
	if err := s.validate(update); err != nil {
		return nil, err
	}
	if update.Status == "" && update.DateTime == nil && update.Notes == nil && update.CancellationReason == nil {
		return nil, apperrors.InvalidInput("No fields to update")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(requester.UserID) && !requester.IsElevated() {
		return nil, apperrors.Forbidden("You are not allowed to modify this booking")
	}

	statusChanged := update.Status != "" && update.Status != booking.Status
	if statusChanged && update.Status == model.BookingStatusCancelled && s.policy.WindowOnAllUpdates {
		if err := s.checkCancellationWindow(requester, booking); err != nil {
			return nil, err
		}
	}

	patch := model.BookingPatch{
		DateTime:           update.DateTime,
		Notes:              update.Notes,
		CancellationReason: update.CancellationReason,
	}
	if statusChanged {
		patch.Status = &update.Status
	}

	return s.apply(ctx, requester, booking, patch)
}

func (s *bookingService) Cancel(ctx context.Context, requester auth.Principal, id string, reason string) (*model.BookingResult, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(requester.UserID) && !requester.IsElevated() {
		return nil, apperrors.Forbidden("You are not allowed to cancel this booking")
	}
	if err := s.checkCancellationWindow(requester, booking); err != nil {
		return nil, err
	}

	patch := model.BookingPatch{}
	if booking.Status != model.BookingStatusCancelled {
		status := model.BookingStatusCancelled
		patch.Status = &status
	}
	if reason = sanitizer.TrimAndNormalize(reason); reason != "" {
		patch.CancellationReason = &reason
	}

	result, err := s.apply(ctx, requester, booking, patch)
	if err != nil {
		return nil, err
	}
	result.Message = "Booking cancelled successfully"
	return result, nil
}

// apply writes patch and then dispatches the notification for the status
// change, if any. A patch without changes writes nothing.
func (s *bookingService) apply(ctx context.Context, requester auth.Principal, booking *model.Booking, patch model.BookingPatch) (*model.BookingResult, error) {
	previous := booking.Status

	if !patch.IsEmpty() {
		patch.LastUpdatedBy = &requester.UserID
		updated, err := s.repo.Update(ctx, booking.ID, patch)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Booking", booking.ID)
			}
			s.log.Error("Failed to update booking", "id", booking.ID, "error", err)
			return nil, apperrors.Persistence("update booking", err)
		}
		booking = updated
	}

	result := &model.BookingResult{
		Booking: booking,
		Message: MessageBookingUpdated,
	}

	if patch.Status == nil {
		return result, nil
	}
	result.Message = fmt.Sprintf("Booking status updated to '%s'", booking.Status)

	metrics.BookingTransitionsTotal.WithLabelValues(previous, booking.Status).Inc()
	s.log.Info("Booking status changed",
		"id", booking.ID,
		"from", previous,
		"to", booking.Status,
		"updated_by", requester.UserID,
	)

	if booking.Status == model.BookingStatusPending {
		return result, nil
	}

	names := s.newLookup().resolve(ctx, booking)
	result.ClientName = names.client
	result.ProfessionalName = names.professional
	result.ServiceName = names.service

	if notification, ok := statusNotification(booking, requester.UserID, names); ok {
		s.dispatch(ctx, notification)
	}
	return result, nil
}

func (s *bookingService) ApplyPaymentEvent(ctx context.Context, event model.PaymentEvent) error {
	event.Status = sanitizer.NormalizeToken(event.Status)
	switch event.Status {
	case model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		return apperrors.InvalidStatus(event.Status, []string{
			model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusRefunded,
		})
	}

	patch := model.BookingPatch{PaymentStatus: &event.Status}
	if event.PaymentIntentID != "" {
		patch.PaymentIntentID = &event.PaymentIntentID
	}

	booking, err := s.repo.Update(ctx, event.BookingID, patch)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID("Booking", event.BookingID)
		}
		return apperrors.Persistence("update payment status", err)
	}

	s.log.Info("Booking payment status updated",
		"id", booking.ID,
		"payment_status", booking.PaymentStatus,
		"payment_intent_id", booking.PaymentIntentID,
	)

	if event.Status == model.PaymentStatusPaid {
		names := s.newLookup().resolve(ctx, booking)
		s.dispatch(ctx, paymentConfirmedNotification(booking, names))
	}
	return nil
}

// checkCancellationWindow rejects a client cancelling too close to the appointment.
// Professionals and elevated callers are not bound by the window.
func (s *bookingService) checkCancellationWindow(requester auth.Principal, booking *model.Booking) error {
	if requester.IsElevated() || requester.UserID != booking.ClientID {
		return nil
	}
	if booking.DateTime.Sub(s.now()) < s.policy.CancellationWindow {
		return apperrors.TooLateToCancel(formatWindow(s.policy.CancellationWindow))
	}
	return nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.log.Error("Failed to load booking", "id", id, "error", err)
		return nil, apperrors.Persistence("retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) validate(v any) error {
	var err error
	switch req := v.(type) {
	case *model.BookingRequest:
		err = s.validator.Validate(req)
	case *model.BookingUpdate:
		err = s.validator.ValidateUpdate(req)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid booking data", map[string]any{"errors": verrs})
	}
	return apperrors.Internal("Failed to validate booking", err)
}

func (s *bookingService) dispatch(ctx context.Context, req model.NotificationRequest) {
	err := s.collaborators.Notifier.Send(ctx, req)
	metrics.RecordNotification(req.Type, err)
	if err != nil {
		s.log.Warn("Failed to send notification",
			"type", req.Type,
			"recipient_id", req.RecipientID,
			"booking_id", req.MetaData["booking_id"],
			"error", err,
		)
	}
}

func sanitizeRequest(req *model.BookingRequest) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Notes = sanitizer.TrimAndNormalize(req.Notes)
	req.Currency = sanitizer.NormalizeCurrency(req.Currency)
}

func sanitizeUpdate(update *model.BookingUpdate) {
	if update.Notes != nil {
		notes := sanitizer.TrimAndNormalize(*update.Notes)
		update.Notes = &notes
	}
	if update.CancellationReason != nil {
		reason := sanitizer.TrimAndNormalize(*update.CancellationReason)
		update.CancellationReason = &reason
	}
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
