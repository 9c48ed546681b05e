package repository

import (
	"context"
	"time"

	"healthmatch/pkg/model"
)

const (
	CollectionName = "Bookings"
	TableName      = "bookings"
)

// BookingRepository is the booking store. Implementations return
// bookingserrors.ErrNotFound and bookingserrors.ErrInvalidID for missing or
// malformed ids, and wrap every other failure.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// Update applies the non-nil fields of patch and returns the stored booking.
	Update(ctx context.Context, id string, patch model.BookingPatch) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	// FindByUser returns bookings where the user is client or professional, newest date_time first.
	FindByUser(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error)
	CountByUser(ctx context.Context, filter model.BookingFilter) (int64, error)
	Driver() string
}

// withTimeout narrows ctx to timeout unless the caller already set an earlier deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
