package model

import "testing"

func TestIsValidBookingStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{BookingStatusPending, true},
		{BookingStatusConfirmed, true},
		{BookingStatusCompleted, true},
		{BookingStatusCancelled, true},
		{"bogus", false},
		{"", false},
		{"Confirmed", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsValidBookingStatus(tt.status); got != tt.want {
				t.Errorf("IsValidBookingStatus(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestIsValidPaymentStatus(t *testing.T) {
	for _, status := range PaymentStatuses {
		if !IsValidPaymentStatus(status) {
			t.Errorf("expected %q to be valid", status)
		}
	}
	if IsValidPaymentStatus("settled") {
		t.Errorf("expected 'settled' to be invalid")
	}
}

func TestBooking_IsParty(t *testing.T) {
	b := &Booking{ClientID: "1", ProfessionalID: "2"}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{name: "client", userID: "1", want: true},
		{name: "professional", userID: "2", want: true},
		{name: "outsider", userID: "3", want: false},
		{name: "empty", userID: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.IsParty(tt.userID); got != tt.want {
				t.Errorf("IsParty(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestBookingPatch_IsEmpty(t *testing.T) {
	if !(BookingPatch{}).IsEmpty() {
		t.Errorf("zero patch should be empty")
	}

	status := BookingStatusConfirmed
	if (BookingPatch{Status: &status}).IsEmpty() {
		t.Errorf("patch with status should not be empty")
	}

	notes := ""
	if (BookingPatch{Notes: &notes}).IsEmpty() {
		t.Errorf("patch clearing notes should not be empty")
	}
}
