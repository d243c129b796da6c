package order

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusUnassigned, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusOffering, false},
		{StatusUnassigned, StatusOffering, true},
		{StatusUnassigned, StatusOffered, false},
		{StatusOffering, StatusOffered, true},
		{StatusOffering, StatusAssigned, false},
		{StatusOffered, StatusAssigned, true},
		{StatusOffered, StatusOffering, true},
		{StatusOffered, StatusCancelled, true},
		{StatusAssigned, StatusPickedUp, true},
		{StatusAssigned, StatusDelivered, false},
		{StatusPickedUp, StatusDelivered, true},
		{StatusPickedUp, StatusAssigned, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusOffering, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"picked_up", StatusPickedUp, false},
		{"  DELIVERED ", StatusDelivered, false},
		{"offering", StatusOffering, false},
		{"SHIPPED", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []Status{StatusDelivered, StatusCancelled} {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []Status{StatusPending, StatusUnassigned, StatusOffering, StatusOffered, StatusAssigned, StatusPickedUp} {
		if status.Terminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}
