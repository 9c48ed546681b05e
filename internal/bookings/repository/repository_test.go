package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"healthmatch/pkg/config"
	"healthmatch/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestPatchToSet(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	patch := model.BookingPatch{
		Status:        strPtr(model.BookingStatusCancelled),
		LastUpdatedBy: strPtr("u-1"),
	}

	set := patchToSet(patch, now)

	if len(set) != 3 {
		t.Fatalf("expected 3 fields, got %v", set)
	}
	if set["status"] != model.BookingStatusCancelled || set["last_updated_by"] != "u-1" || set["updated_at"] != now {
		t.Errorf("unexpected $set document %v", set)
	}
	if _, ok := set["notes"]; ok {
		t.Error("nil fields must not be written")
	}
}

func TestPatchToColumns_EmptyStringIsWritten(t *testing.T) {
	columns := patchToColumns(model.BookingPatch{Notes: strPtr("")}, time.Now())
	if v, ok := columns["notes"]; !ok || v != "" {
		t.Errorf("expected notes to be cleared, got %v", columns)
	}
}

func TestUserFilter(t *testing.T) {
	filter := userFilter(model.BookingFilter{UserID: "u-1", Status: model.BookingStatusPending})

	or, ok := filter["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or over both parties, got %v", filter)
	}
	if filter["status"] != model.BookingStatusPending {
		t.Errorf("expected status filter, got %v", filter["status"])
	}

	if _, ok := userFilter(model.BookingFilter{UserID: "u-1"})["status"]; ok {
		t.Error("status must be omitted when not filtered")
	}
}

func TestUserFindOptions_NewestFirst(t *testing.T) {
	opts := userFindOptions(model.BookingFilter{UserID: "u-1", Limit: 20, Offset: 40})

	sort, ok := opts.Sort.(bson.D)
	if !ok || len(sort) == 0 {
		t.Fatalf("expected a sort document, got %#v", opts.Sort)
	}
	if sort[0].Key != "date_time" || sort[0].Value != -1 {
		t.Errorf("expected date_time descending first, got %v", sort[0])
	}
	if opts.Limit == nil || *opts.Limit != 20 {
		t.Errorf("expected limit 20, got %v", opts.Limit)
	}
	if opts.Skip == nil || *opts.Skip != 40 {
		t.Errorf("expected skip 40, got %v", opts.Skip)
	}
}

func newDryRunPostgresRepository(t *testing.T) *postgresBookingRepository {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run gorm: %v", err)
	}
	return &postgresBookingRepository{
		cfg: &config.Config{ReadTimeout: time.Second, WriteTimeout: time.Second},
		db:  db,
	}
}

func TestUserPage_NewestFirst(t *testing.T) {
	repo := newDryRunPostgresRepository(t)

	var rows []BookingModel
	stmt := repo.userPage(context.Background(), model.BookingFilter{
		UserID: "u-1",
		Status: model.BookingStatusConfirmed,
		Limit:  10,
	}).Find(&rows).Statement

	query := stmt.SQL.String()
	if !strings.Contains(query, "ORDER BY date_time DESC") {
		t.Errorf("expected date_time descending order, got %s", query)
	}
	if !strings.Contains(query, "client_id = $1 OR professional_id = $2") {
		t.Errorf("expected both parties in the filter, got %s", query)
	}
	if !strings.Contains(query, "status = $3") {
		t.Errorf("expected status filter, got %s", query)
	}
}

func TestModelRoundTrip(t *testing.T) {
	amount := int64(5000)
	in := &model.Booking{
		ID:             "2f1c6d1e-7f4a-4c55-9a0e-0f3cf2bbd001",
		ClientID:       "c",
		ProfessionalID: "p",
		ServiceID:      "s",
		DateTime:       time.Date(2030, 5, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600)),
		Status:         model.BookingStatusPending,
		PaymentStatus:  model.PaymentStatusPending,
		Amount:         &amount,
		Currency:       "eur",
	}

	row := toBookingModel(in)
	if row.Notes != nil || row.PaymentIntentID != nil {
		t.Error("empty optional strings must map to NULL")
	}

	out := toDomainBooking(row)
	if !out.DateTime.Equal(in.DateTime) || out.DateTime.Location() != time.UTC {
		t.Errorf("expected the same instant in UTC, got %v", out.DateTime)
	}
	if out.Currency != "eur" || *out.Amount != amount {
		t.Errorf("unexpected booking %+v", out)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected a deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer parentCancel()
	child, childCancel := withTimeout(parent, time.Hour)
	defer childCancel()

	pd, _ := parent.Deadline()
	cd, _ := child.Deadline()
	if !cd.Equal(pd) {
		t.Errorf("expected the earlier parent deadline to be kept")
	}
}
