package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingserrors "healthmatch/internal/bookings/errors"
	"healthmatch/internal/bookings/validator"
	"healthmatch/pkg/auth"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"
)

// memRepo is an in-memory booking store with optional failure injection.
type memRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	seq      int

	createErr error
	updateErr error
	findErr   error

	updates int
	deletes int
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]*model.Booking)}
}

func (r *memRepo) Driver() string { return "memory" }

func (r *memRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	b.ID = fmt.Sprintf("b-%d", r.seq)
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *memRepo) put(b model.Booking) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := b
	r.bookings[b.ID] = &stored
	copied := stored
	return &copied
}

func (r *memRepo) get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil
	}
	copied := *b
	return &copied
}

func (r *memRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if b := r.get(id); b != nil {
		return b, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *memRepo) Update(_ context.Context, id string, p model.BookingPatch) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	r.updates++
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentIntentID != nil {
		b.PaymentIntentID = *p.PaymentIntentID
	}
	if p.DateTime != nil {
		b.DateTime = *p.DateTime
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.CancellationReason != nil {
		b.CancellationReason = *p.CancellationReason
	}
	if p.LastUpdatedBy != nil {
		b.LastUpdatedBy = *p.LastUpdatedBy
	}
	b.UpdatedAt = time.Now().UTC()
	copied := *b
	return &copied, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	r.deletes++
	delete(r.bookings, id)
	return nil
}

func (r *memRepo) matching(f model.BookingFilter) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if !b.IsParty(f.UserID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.After(out[j].DateTime) })
	return out
}

func (r *memRepo) FindByUser(_ context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.matching(f)
	if int(f.Offset) >= len(out) {
		return []*model.Booking{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) CountByUser(_ context.Context, f model.BookingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type mockDirectory struct {
	mu          sync.Mutex
	calls       map[string]int
	getUserFunc func(ctx context.Context, id string) (*model.UserProfile, error)
}

func (m *mockDirectory) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[id]++
	m.mu.Unlock()

	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return &model.UserProfile{ID: id, Name: "Name " + id}, nil
}

type mockCatalog struct {
	getServiceFunc func(ctx context.Context, id string) (*model.CatalogService, error)
}

func (m *mockCatalog) GetService(ctx context.Context, id string) (*model.CatalogService, error) {
	if m.getServiceFunc != nil {
		return m.getServiceFunc(ctx, id)
	}
	return &model.CatalogService{ID: id, Name: "Physiotherapy", Duration: 45}, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	sent     []model.NotificationRequest
	sendFunc func(ctx context.Context, req model.NotificationRequest) error
}

func (m *mockNotifier) Send(ctx context.Context, req model.NotificationRequest) error {
	m.mu.Lock()
	m.sent = append(m.sent, req)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, req)
	}
	return nil
}

func (m *mockNotifier) all() []model.NotificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.NotificationRequest(nil), m.sent...)
}

type mockPayments struct {
	calls            int
	createIntentFunc func(ctx context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error)
}

func (m *mockPayments) CreateIntent(ctx context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error) {
	m.calls++
	if m.createIntentFunc != nil {
		return m.createIntentFunc(ctx, req)
	}
	return &model.PaymentIntent{ID: "pi_" + req.BookingID, ClientSecret: "secret_" + req.BookingID}, nil
}

type fixture struct {
	repo      *memRepo
	directory *mockDirectory
	catalog   *mockCatalog
	notifier  *mockNotifier
	payments  *mockPayments
	svc       *bookingService
	now       time.Time
}

func newFixture(policy Policy) *fixture {
	if policy.CancellationWindow == 0 {
		policy.CancellationWindow = 24 * time.Hour
	}
	if policy.DefaultCurrency == "" {
		policy.DefaultCurrency = "eur"
	}

	f := &fixture{
		repo:      newMemRepo(),
		directory: &mockDirectory{},
		catalog:   &mockCatalog{},
		notifier:  &mockNotifier{},
		payments:  &mockPayments{},
		now:       time.Now().UTC(),
	}

	log := logger.Discard()
	svc := NewBookingService(
		f.repo,
		validator.NewBookingValidator(log),
		Collaborators{
			Directory: f.directory,
			Catalog:   f.catalog,
			Notifier:  f.notifier,
			Payments:  f.payments,
		},
		policy,
		log,
	).(*bookingService)
	svc.now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

// seed stores a booking between client "c1" and professional "p1".
func (f *fixture) seed(id string, dateTime time.Time, status string) *model.Booking {
	return f.repo.put(model.Booking{
		ID:             id,
		ClientID:       "c1",
		ProfessionalID: "p1",
		ServiceID:      "s1",
		DateTime:       dateTime,
		Status:         status,
		PaymentStatus:  model.PaymentStatusNone,
		LastUpdatedBy:  "c1",
	})
}

var (
	client       = auth.Principal{UserID: "c1", Role: auth.RoleClient}
	professional = auth.Principal{UserID: "p1", Role: auth.RoleProfessional}
	outsider     = auth.Principal{UserID: "x9", Role: auth.RoleClient}
	admin        = auth.Principal{UserID: "a1", Role: auth.RoleAdmin}
)
