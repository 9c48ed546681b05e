package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "healthmatch/pkg/errors"
	"healthmatch/pkg/model"
)

func futureRequest(at time.Time) *model.BookingRequest {
	return &model.BookingRequest{
		ClientID:       "c1",
		ProfessionalID: "p1",
		ServiceID:      "s1",
		DateTime:       at,
		Notes:          "  first   visit ",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected error code %s, got %v", code, err)
	}
}

func TestCreate_PastDateIsRejectedAndNothingPersisted(t *testing.T) {
	f := newFixture(Policy{})

	_, err := f.svc.Create(context.Background(), client, futureRequest(time.Now().Add(-time.Hour)))

	assertCode(t, err, apperrors.CodeValidation)
	if f.repo.count() != 0 {
		t.Errorf("expected nothing persisted, got %d bookings", f.repo.count())
	}
	if len(f.notifier.all()) != 0 {
		t.Errorf("expected no notifications")
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(Policy{})

	result, err := f.svc.Create(context.Background(), client, futureRequest(time.Now().Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := result.Booking
	if b.ID == "" || b.Status != model.BookingStatusPending || b.PaymentStatus != model.PaymentStatusNone {
		t.Errorf("unexpected booking %+v", b)
	}
	if b.LastUpdatedBy != "c1" {
		t.Errorf("expected last_updated_by c1, got %q", b.LastUpdatedBy)
	}
	if b.Notes != "first visit" {
		t.Errorf("expected sanitized notes, got %q", b.Notes)
	}
	if result.Message != MessageBookingCreated {
		t.Errorf("unexpected message %q", result.Message)
	}
	if result.ClientName != "Name c1" || result.ProfessionalName != "Name p1" || result.ServiceName != "Physiotherapy" {
		t.Errorf("unexpected names %+v", result)
	}
	if f.payments.calls != 0 {
		t.Errorf("no payment intent expected without amount")
	}

	sent := f.notifier.all()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if sent[0].Type != model.NotificationBookingCreated || sent[0].RecipientID != "c1" {
		t.Errorf("unexpected client notification %+v", sent[0])
	}
	if sent[1].Type != model.NotificationNewBooking || sent[1].RecipientID != "p1" {
		t.Errorf("unexpected professional notification %+v", sent[1])
	}
	if sent[0].MetaData["booking_id"] != b.ID {
		t.Errorf("expected booking_id in meta data, got %v", sent[0].MetaData)
	}
	if !strings.Contains(sent[1].Content, "Name c1") {
		t.Errorf("expected client name in content, got %q", sent[1].Content)
	}
}

func TestCreate_Authorization(t *testing.T) {
	f := newFixture(Policy{})

	_, err := f.svc.Create(context.Background(), outsider, futureRequest(time.Now().Add(72*time.Hour)))
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.svc.Create(context.Background(), admin, futureRequest(time.Now().Add(72*time.Hour))); err != nil {
		t.Fatalf("admin should create on behalf of a client: %v", err)
	}
}

func TestCreate_StoreFailureHasNoSideEffects(t *testing.T) {
	f := newFixture(Policy{})
	f.repo.createErr = errors.New("connection refused")

	amount := int64(5000)
	req := futureRequest(time.Now().Add(72 * time.Hour))
	req.Amount = &amount

	_, err := f.svc.Create(context.Background(), client, req)

	assertCode(t, err, apperrors.CodePersistence)
	if len(f.notifier.all()) != 0 || f.payments.calls != 0 {
		t.Errorf("expected no side effects after a failed write")
	}
}

func TestCreate_CollaboratorFailuresAreBestEffort(t *testing.T) {
	f := newFixture(Policy{})
	f.directory.getUserFunc = func(context.Context, string) (*model.UserProfile, error) {
		return nil, errors.New("users service down")
	}
	f.catalog.getServiceFunc = func(context.Context, string) (*model.CatalogService, error) {
		return nil, errors.New("catalog down")
	}
	f.notifier.sendFunc = func(context.Context, model.NotificationRequest) error {
		return errors.New("notification service down")
	}

	result, err := f.svc.Create(context.Background(), client, futureRequest(time.Now().Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("collaborator failures must not fail creation: %v", err)
	}
	if result.ClientName != UnknownUser || result.ServiceName != UnknownService {
		t.Errorf("expected placeholders, got %+v", result)
	}
	if f.repo.count() != 1 {
		t.Errorf("booking must stay persisted")
	}
}

func TestCreate_PaymentIntent(t *testing.T) {
	f := newFixture(Policy{CompensateOnPayment: true})
	amount := int64(5000)
	req := futureRequest(time.Now().Add(72 * time.Hour))
	req.Amount = &amount
	req.Currency = "EUR"

	var got model.PaymentIntentRequest
	f.payments.createIntentFunc = func(_ context.Context, r model.PaymentIntentRequest) (*model.PaymentIntent, error) {
		got = r
		return &model.PaymentIntent{ID: "pi_1", ClientSecret: "sec_1"}, nil
	}

	result, err := f.svc.Create(context.Background(), client, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Amount != 5000 || got.Currency != "eur" || got.BookingID != result.Booking.ID {
		t.Errorf("unexpected intent request %+v", got)
	}
	if result.PaymentSecret != "sec_1" {
		t.Errorf("expected client secret in result, got %q", result.PaymentSecret)
	}
	stored := f.repo.get(result.Booking.ID)
	if stored.PaymentIntentID != "pi_1" || stored.PaymentStatus != model.PaymentStatusPending {
		t.Errorf("unexpected stored payment fields %+v", stored)
	}
}

func TestCreate_PaymentFailureCompensates(t *testing.T) {
	f := newFixture(Policy{CompensateOnPayment: true})
	f.payments.createIntentFunc = func(context.Context, model.PaymentIntentRequest) (*model.PaymentIntent, error) {
		return nil, errors.New("payment processor timeout")
	}
	amount := int64(5000)
	req := futureRequest(time.Now().Add(72 * time.Hour))
	req.Amount = &amount

	_, err := f.svc.Create(context.Background(), client, req)

	assertCode(t, err, apperrors.CodeBadGateway)
	if apperrors.AsAppError(err).StatusCode() != 502 {
		t.Errorf("expected 502")
	}
	if f.repo.count() != 0 || f.repo.deletes != 1 {
		t.Errorf("expected the booking to be removed, %d left", f.repo.count())
	}
	if len(f.notifier.all()) != 0 {
		t.Errorf("expected no notifications for a compensated booking")
	}
}

func TestCreate_PaymentFailureKeepsBooking(t *testing.T) {
	f := newFixture(Policy{CompensateOnPayment: false})
	f.payments.createIntentFunc = func(context.Context, model.PaymentIntentRequest) (*model.PaymentIntent, error) {
		return nil, errors.New("payment processor timeout")
	}
	amount := int64(5000)
	req := futureRequest(time.Now().Add(72 * time.Hour))
	req.Amount = &amount

	result, err := f.svc.Create(context.Background(), client, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Booking.PaymentStatus != model.PaymentStatusFailed {
		t.Errorf("expected payment_status failed, got %q", result.Booking.PaymentStatus)
	}
	if len(f.notifier.all()) != 2 {
		t.Errorf("expected creation notifications to be sent")
	}
}

func TestUpdate_InvalidStatus(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), client, "b1", "archived")

	assertCode(t, err, apperrors.CodeInvalidStatus)
	if f.repo.get("b1").Status != model.BookingStatusPending || f.repo.updates != 0 {
		t.Errorf("booking must stay unchanged")
	}
}

func TestUpdate_SameStatusHasNoSideEffects(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusConfirmed)

	result, err := f.svc.UpdateStatus(context.Background(), professional, "b1", "confirmed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.updates != 0 {
		t.Errorf("expected no write, got %d", f.repo.updates)
	}
	if len(f.notifier.all()) != 0 {
		t.Errorf("expected no notification")
	}
	if result.Message != MessageBookingUpdated {
		t.Errorf("unchanged status must not be reported as a status change, got %q", result.Message)
	}
}

func TestUpdate_StatusNotifications(t *testing.T) {
	tests := []struct {
		name          string
		requester     string
		status        string
		wantRecipient string
		wantType      string
	}{
		{name: "confirmed notifies client", requester: "p1", status: "confirmed", wantRecipient: "c1", wantType: model.NotificationBookingConfirmed},
		{name: "client cancel notifies professional", requester: "c1", status: "cancelled", wantRecipient: "p1", wantType: model.NotificationBookingCancelled},
		{name: "professional cancel notifies client", requester: "p1", status: "cancelled", wantRecipient: "c1", wantType: model.NotificationBookingCancelled},
		{name: "completed asks client for a review", requester: "p1", status: "completed", wantRecipient: "c1", wantType: model.NotificationBookingCompleted},
		{name: "pending notifies nobody", requester: "p1", status: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Policy{})
			initial := model.BookingStatusConfirmed
			if tt.status == model.BookingStatusConfirmed {
				initial = model.BookingStatusPending
			}
			f.seed("b1", f.now.Add(72*time.Hour), initial)

			requester := client
			if tt.requester == "p1" {
				requester = professional
			}

			result, err := f.svc.UpdateStatus(context.Background(), requester, "b1", strings.ToUpper(tt.status))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Booking.Status != tt.status || result.Booking.LastUpdatedBy != tt.requester {
				t.Errorf("unexpected booking %+v", result.Booking)
			}
			if want := "Booking status updated to '" + tt.status + "'"; result.Message != want {
				t.Errorf("expected message %q, got %q", want, result.Message)
			}

			sent := f.notifier.all()
			if tt.wantType == "" {
				if len(sent) != 0 {
					t.Fatalf("expected no notification, got %+v", sent)
				}
				return
			}
			if len(sent) != 1 {
				t.Fatalf("expected exactly one notification, got %d", len(sent))
			}
			if sent[0].RecipientID != tt.wantRecipient || sent[0].Type != tt.wantType {
				t.Errorf("unexpected notification %+v", sent[0])
			}
			if tt.status == model.BookingStatusCompleted && sent[0].MetaData["request_review"] != true {
				t.Errorf("expected request_review in meta data")
			}
		})
	}
}

func TestUpdate_Authorization(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), outsider, "b1", "confirmed")
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.UpdateStatus(context.Background(), client, "missing", "confirmed")
	assertCode(t, err, apperrors.CodeNotFound)

	if _, err := f.svc.UpdateStatus(context.Background(), admin, "b1", "confirmed"); err != nil {
		t.Errorf("admin should update any booking: %v", err)
	}
}

func TestUpdate_StoreFailureSendsNoNotification(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)
	f.repo.updateErr = errors.New("write conflict")

	_, err := f.svc.UpdateStatus(context.Background(), professional, "b1", "confirmed")

	assertCode(t, err, apperrors.CodePersistence)
	if len(f.notifier.all()) != 0 {
		t.Errorf("expected no notification after a failed write")
	}
}

func TestUpdate_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)
	f.notifier.sendFunc = func(context.Context, model.NotificationRequest) error {
		return errors.New("unavailable")
	}

	result, err := f.svc.UpdateStatus(context.Background(), professional, "b1", "confirmed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Booking.Status != model.BookingStatusConfirmed {
		t.Errorf("expected status to be persisted")
	}
}

func TestUpdate_FieldsWithoutStatus(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)

	newTime := time.Now().Add(96 * time.Hour).UTC()
	notes := " bring   reports "
	result, err := f.svc.Update(context.Background(), client, "b1", &model.BookingUpdate{DateTime: &newTime, Notes: &notes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Booking.DateTime.Equal(newTime) || result.Booking.Notes != "bring reports" {
		t.Errorf("unexpected booking %+v", result.Booking)
	}
	if len(f.notifier.all()) != 0 {
		t.Errorf("field updates must not notify")
	}
	if result.Message != MessageBookingUpdated {
		t.Errorf("expected %q for a field-only update, got %q", MessageBookingUpdated, result.Message)
	}

	_, err = f.svc.Update(context.Background(), client, "b1", &model.BookingUpdate{})
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestCancel_Window(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		until     time.Duration
		wantCode  string
	}{
		{name: "client inside window", requester: "c1", until: 12 * time.Hour, wantCode: apperrors.CodeTooLateToCancel},
		{name: "client outside window", requester: "c1", until: 30 * time.Hour},
		{name: "admin inside window", requester: "a1", until: 2 * time.Hour},
		{name: "professional inside window", requester: "p1", until: 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Policy{})
			f.seed("b1", f.now.Add(tt.until), model.BookingStatusConfirmed)

			p := client
			switch tt.requester {
			case "a1":
				p = admin
			case "p1":
				p = professional
			}

			result, err := f.svc.Cancel(context.Background(), p, "b1", "  feeling better ")
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if f.repo.get("b1").Status != model.BookingStatusConfirmed {
					t.Errorf("booking must stay unchanged")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Booking.Status != model.BookingStatusCancelled || result.Booking.CancellationReason != "feeling better" {
				t.Errorf("unexpected booking %+v", result.Booking)
			}
			if len(f.notifier.all()) != 1 {
				t.Errorf("expected one cancellation notification")
			}
		})
	}
}

func TestCancel_WindowScope(t *testing.T) {
	for _, allUpdates := range []bool{false, true} {
		f := newFixture(Policy{WindowOnAllUpdates: allUpdates})
		f.seed("b1", f.now.Add(time.Hour), model.BookingStatusConfirmed)

		_, err := f.svc.UpdateStatus(context.Background(), client, "b1", "cancelled")
		if allUpdates {
			assertCode(t, err, apperrors.CodeTooLateToCancel)
		} else if err != nil {
			t.Errorf("update path should not apply the window by default: %v", err)
		}
	}
}

func TestCancel_Outsider(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusConfirmed)

	_, err := f.svc.Cancel(context.Background(), outsider, "b1", "")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestGetByID(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusConfirmed)

	detail, err := f.svc.GetByID(context.Background(), professional, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.ServiceDuration != 45 || detail.ClientName != "Name c1" {
		t.Errorf("unexpected detail %+v", detail)
	}

	_, err = f.svc.GetByID(context.Background(), outsider, "b1")
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.GetByID(context.Background(), client, "nope")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestListForUser(t *testing.T) {
	f := newFixture(Policy{})
	base := f.now.Add(48 * time.Hour)
	f.seed("b1", base.Add(1*time.Hour), model.BookingStatusPending)
	f.seed("b2", base.Add(3*time.Hour), model.BookingStatusConfirmed)
	f.seed("b3", base.Add(2*time.Hour), model.BookingStatusCancelled)
	f.repo.put(model.Booking{ID: "other", ClientID: "c2", ProfessionalID: "p2", ServiceID: "s1", DateTime: base, Status: model.BookingStatusPending})

	summaries, total, err := f.svc.ListForUser(context.Background(), client, model.BookingFilter{UserID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(summaries) != 3 {
		t.Fatalf("expected 3 bookings, got %d (total %d)", len(summaries), total)
	}
	wantOrder := []string{"b2", "b3", "b1"}
	for i, s := range summaries {
		if s.ID != wantOrder[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantOrder[i], s.ID)
		}
		if !s.IsClient || s.ClientID != "c1" {
			t.Errorf("summary does not belong to the client: %+v", s)
		}
		if s.ProfessionalName != "Name p1" {
			t.Errorf("expected enriched name, got %q", s.ProfessionalName)
		}
	}

	f.directory.mu.Lock()
	calls := f.directory.calls["p1"]
	f.directory.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected de-duplicated directory lookups, got %d calls for p1", calls)
	}

	asPro, _, err := f.svc.ListForUser(context.Background(), professional, model.BookingFilter{UserID: "p1", Status: "Confirmed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(asPro) != 1 || asPro[0].ID != "b2" || asPro[0].IsClient {
		t.Errorf("unexpected filtered list %+v", asPro)
	}
}

func TestListForUser_Errors(t *testing.T) {
	f := newFixture(Policy{})

	_, _, err := f.svc.ListForUser(context.Background(), outsider, model.BookingFilter{UserID: "c1"})
	assertCode(t, err, apperrors.CodeForbidden)

	_, _, err = f.svc.ListForUser(context.Background(), client, model.BookingFilter{UserID: "c1", Status: "archived"})
	assertCode(t, err, apperrors.CodeInvalidStatus)

	if _, _, err := f.svc.ListForUser(context.Background(), admin, model.BookingFilter{UserID: "c1"}); err != nil {
		t.Errorf("admin may list any user: %v", err)
	}
}

func TestApplyPaymentEvent(t *testing.T) {
	f := newFixture(Policy{})
	f.seed("b1", f.now.Add(72*time.Hour), model.BookingStatusPending)

	err := f.svc.ApplyPaymentEvent(context.Background(), model.PaymentEvent{BookingID: "b1", PaymentIntentID: "pi_9", Status: "PAID"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := f.repo.get("b1")
	if stored.PaymentStatus != model.PaymentStatusPaid || stored.PaymentIntentID != "pi_9" {
		t.Errorf("unexpected payment fields %+v", stored)
	}
	if stored.Status != model.BookingStatusPending {
		t.Errorf("payment events must not touch the booking status")
	}
	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].Type != model.NotificationPaymentConfirmed || sent[0].RecipientID != "c1" {
		t.Errorf("unexpected notifications %+v", sent)
	}

	err = f.svc.ApplyPaymentEvent(context.Background(), model.PaymentEvent{BookingID: "missing", Status: "failed"})
	assertCode(t, err, apperrors.CodeNotFound)

	err = f.svc.ApplyPaymentEvent(context.Background(), model.PaymentEvent{BookingID: "b1", Status: "pending"})
	assertCode(t, err, apperrors.CodeInvalidStatus)
}
