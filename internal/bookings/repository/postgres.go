package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "healthmatch/internal/bookings/errors"
	"healthmatch/pkg/config"
	"healthmatch/pkg/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingModel is the bookings row. The schema is owned by the SQL migrations.
type BookingModel struct {
	ID                 string `gorm:"primaryKey;type:uuid"`
	ClientID           string `gorm:"index"`
	ProfessionalID     string `gorm:"index"`
	ServiceID          string
	DateTime           time.Time `gorm:"index"`
	Status             string
	PaymentStatus      string
	PaymentIntentID    *string
	Amount             *int64
	Currency           *string
	LastUpdatedBy      string
	CancellationReason *string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (BookingModel) TableName() string {
	return TableName
}

type postgresBookingRepository struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewPostgresBookingRepository(cfg *config.Config) BookingRepository {
	return &postgresBookingRepository{
		cfg: cfg,
		db:  cfg.Client.Postgres,
	}
}

func (r *postgresBookingRepository) Driver() string {
	return config.StoreDriverPostgres
}

func (r *postgresBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Microsecond)
	booking.ID = uuid.NewString()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(toBookingModel(booking)).Error; err != nil {
		booking.ID = ""
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var row BookingModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return toDomainBooking(&row), nil
}

func (r *postgresBookingRepository) Update(ctx context.Context, id string, patch model.BookingPatch) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var row BookingModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BookingModel{}).
			Where("id = ?", id).
			Updates(patchToColumns(patch, time.Now().UTC().Truncate(time.Microsecond)))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return bookingserrors.ErrNotFound
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return toDomainBooking(&row), nil
}

func (r *postgresBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result := r.db.WithContext(ctx).Delete(&BookingModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) FindByUser(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rows []BookingModel
	err := r.userPage(ctx, filter).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, toDomainBooking(&rows[i]))
	}
	return bookings, nil
}

func (r *postgresBookingRepository) CountByUser(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var count int64
	if err := r.userScope(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *postgresBookingRepository) userScope(ctx context.Context, filter model.BookingFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("(client_id = ? OR professional_id = ?)", filter.UserID, filter.UserID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

// userPage orders a user's bookings newest date_time first and applies the page window.
func (r *postgresBookingRepository) userPage(ctx context.Context, filter model.BookingFilter) *gorm.DB {
	return r.userScope(ctx, filter).
		Order("date_time DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(int(filter.Offset))
}

func patchToColumns(patch model.BookingPatch, now time.Time) map[string]any {
	columns := map[string]any{"updated_at": now}
	if patch.Status != nil {
		columns["status"] = *patch.Status
	}
	if patch.PaymentStatus != nil {
		columns["payment_status"] = *patch.PaymentStatus
	}
	if patch.PaymentIntentID != nil {
		columns["payment_intent_id"] = *patch.PaymentIntentID
	}
	if patch.DateTime != nil {
		columns["date_time"] = patch.DateTime.UTC()
	}
	if patch.Notes != nil {
		columns["notes"] = *patch.Notes
	}
	if patch.CancellationReason != nil {
		columns["cancellation_reason"] = *patch.CancellationReason
	}
	if patch.LastUpdatedBy != nil {
		columns["last_updated_by"] = *patch.LastUpdatedBy
	}
	return columns
}

func toBookingModel(b *model.Booking) *BookingModel {
	return &BookingModel{
		ID:                 b.ID,
		ClientID:           b.ClientID,
		ProfessionalID:     b.ProfessionalID,
		ServiceID:          b.ServiceID,
		DateTime:           b.DateTime.UTC(),
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		PaymentIntentID:    nullable(b.PaymentIntentID),
		Amount:             b.Amount,
		Currency:           nullable(b.Currency),
		LastUpdatedBy:      b.LastUpdatedBy,
		CancellationReason: nullable(b.CancellationReason),
		Notes:              nullable(b.Notes),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toDomainBooking(m *BookingModel) *model.Booking {
	return &model.Booking{
		ID:                 m.ID,
		ClientID:           m.ClientID,
		ProfessionalID:     m.ProfessionalID,
		ServiceID:          m.ServiceID,
		DateTime:           m.DateTime.UTC(),
		Status:             m.Status,
		PaymentStatus:      m.PaymentStatus,
		PaymentIntentID:    deref(m.PaymentIntentID),
		Amount:             m.Amount,
		Currency:           deref(m.Currency),
		LastUpdatedBy:      m.LastUpdatedBy,
		CancellationReason: deref(m.CancellationReason),
		Notes:              deref(m.Notes),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
