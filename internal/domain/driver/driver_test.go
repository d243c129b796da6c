package driver

import (
	"errors"
	"testing"
)

func TestShiftStateMachine(t *testing.T) {
	cases := []struct {
		name    string
		from    DriverStatus
		move    func(*Driver) error
		want    DriverStatus
		wantErr bool
	}{
		{"go online from offline", DriverStatusOffline, (*Driver).GoOnline, DriverStatusOnline, false},
		{"go online twice", DriverStatusOnline, (*Driver).GoOnline, DriverStatusOnline, true},
		{"go online while available", DriverStatusAvailable, (*Driver).GoOnline, DriverStatusAvailable, true},
		{"busy from online", DriverStatusOnline, (*Driver).MarkBusy, DriverStatusBusy, false},
		{"busy from available", DriverStatusAvailable, (*Driver).MarkBusy, DriverStatusBusy, false},
		{"busy from offline", DriverStatusOffline, (*Driver).MarkBusy, DriverStatusOffline, true},
		{"available after delivery", DriverStatusBusy, (*Driver).MarkAvailable, DriverStatusAvailable, false},
		{"available from offline", DriverStatusOffline, (*Driver).MarkAvailable, DriverStatusOffline, true},
		{"offline from online", DriverStatusOnline, (*Driver).GoOffline, DriverStatusOffline, false},
		{"offline from busy", DriverStatusBusy, (*Driver).GoOffline, DriverStatusOffline, false},
		{"offline twice", DriverStatusOffline, (*Driver).GoOffline, DriverStatusOffline, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &Driver{ID: "drv-1", Status: tc.from}
			err := tc.move(drv)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidStatusSwitch) {
					t.Fatalf("err = %v, want ErrInvalidStatusSwitch", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if drv.Status != tc.want {
				t.Errorf("status = %s, want %s", drv.Status, tc.want)
			}
		})
	}
}

func TestDispatchable(t *testing.T) {
	cases := []struct {
		status DriverStatus
		want   bool
	}{
		{DriverStatusOnline, true},
		{DriverStatusAvailable, true},
		{DriverStatusBusy, false},
		{DriverStatusOffline, false},
	}
	for _, tc := range cases {
		if got := tc.status.Dispatchable(); got != tc.want {
			t.Errorf("%s dispatchable = %v, want %v", tc.status, got, tc.want)
		}
	}
}
