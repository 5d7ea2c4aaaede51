package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveStatus(t *testing.T) {
	now := time.Now()
	dist := 3.0

	tests := []struct {
		name string
		sess Session
		want Status
	}{
		{
			"both in range",
			Session{CheckInTime: &now, CheckOutTime: &now,
				CheckInDistance: &dist, CheckOutDistance: &dist,
				CheckInWithinRange: true, CheckOutWithinRange: true},
			StatusCompleted,
		},
		{
			"check-in out of range",
			Session{CheckInTime: &now, CheckOutTime: &now,
				CheckInDistance: &dist, CheckOutDistance: &dist,
				CheckInWithinRange: false, CheckOutWithinRange: true},
			StatusIncomplete,
		},
		{
			"no geofence evidence at check-out",
			Session{CheckInTime: &now, CheckOutTime: &now,
				CheckInDistance: &dist, CheckInWithinRange: true},
			StatusIncomplete,
		},
		{
			"never checked out",
			Session{CheckInTime: &now, CheckInDistance: &dist, CheckInWithinRange: true},
			StatusIncomplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStatus(&tt.sess); got != tt.want {
				t.Errorf("ResolveStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2026-03-02"); err != nil {
		t.Errorf("valid date rejected: %v", err)
	}
	for _, bad := range []string{"02-03-2026", "2026/03/02", "yesterday", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) accepted", bad)
		}
	}
}

func TestLedgerTupleUniqueness(t *testing.T) {
	ledger := newMemLedger()
	now := time.Now()
	mk := func() *Session {
		t := now
		return &Session{
			TeacherID: "t1", CourseID: "math", ClassroomID: "room1",
			TimetableID: "tt1", Date: "2026-03-02",
			CheckInTime: &t, Status: StatusPending,
		}
	}

	ctx := context.Background()
	first := mk()
	if err := ledger.CreateSession(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Close it so the open-session rule is out of the way.
	first.CheckOutTime = &now
	if err := ledger.CompleteSession(ctx, first); err != nil {
		t.Fatalf("complete: %v", err)
	}

	err := ledger.CreateSession(ctx, mk())
	if !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("got %v, want ErrDuplicateSession", err)
	}
}
