package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return v
}

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func testSchedule(t *testing.T) Schedule {
	t.Helper()
	late := tod(t, "07:15")
	return Schedule{
		Version: 1,
		Days: []Day{
			{
				Date: "2025-03-10",
				Sessions: []Session{
					{ID: "s-mi", Name: "Morning In", Period: PeriodMorning, Direction: DirectionIn,
						OpensAt: tod(t, "07:00"), ClosesAt: tod(t, "08:00"), LateAfter: &late},
					{ID: "s-mo", Name: "Morning Out", Period: PeriodMorning, Direction: DirectionOut,
						OpensAt: tod(t, "11:30"), ClosesAt: tod(t, "12:30")},
				},
			},
		},
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "07:15", want: 7*60 + 15},
		{in: "23:59", want: 23*60 + 59},
		{in: "24:00", wantErr: true},
		{in: "07:60", wantErr: true},
		{in: "0715", wantErr: true},
		{in: "seven", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	late := tod(t, "07:15")
	sess := Session{ID: "x", OpensAt: tod(t, "07:00"), ClosesAt: tod(t, "08:00"), LateAfter: &late}

	data, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.OpensAt != sess.OpensAt || back.ClosesAt != sess.ClosesAt {
		t.Errorf("window did not survive round trip: %+v", back)
	}
	if back.LateAfter == nil || *back.LateAfter != late {
		t.Errorf("late threshold did not survive round trip: %+v", back.LateAfter)
	}
}

func TestResolveActiveSession(t *testing.T) {
	sched := testSchedule(t)

	res := Resolve(sched, at(7, 10))
	if res.Active == nil {
		t.Fatalf("expected active session, got reason %q", res.Reason)
	}
	if res.Active.ID != "s-mi" {
		t.Errorf("active = %s, want s-mi", res.Active.ID)
	}

	res = Resolve(sched, at(11, 30))
	if res.Active == nil || res.Active.ID != "s-mo" {
		t.Errorf("expected s-mo active at 11:30, got %+v", res)
	}
}

func TestResolveNoEventToday(t *testing.T) {
	sched := testSchedule(t)
	res := Resolve(sched, time.Date(2025, 3, 11, 7, 10, 0, 0, time.UTC))
	if res.Active != nil {
		t.Fatalf("expected no active session, got %s", res.Active.ID)
	}
	if res.Reason != ReasonNoEventToday {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonNoEventToday)
	}
}

func TestResolveOutsideWindows(t *testing.T) {
	sched := testSchedule(t)
	for _, now := range []time.Time{at(6, 59), at(9, 0), at(12, 30), at(23, 0)} {
		res := Resolve(sched, now)
		if res.Active != nil {
			t.Errorf("at %s: expected no active session, got %s", now, res.Active.ID)
		}
		if res.Reason != ReasonNotOpen {
			t.Errorf("at %s: reason = %q, want %q", now, res.Reason, ReasonNotOpen)
		}
	}
}

func TestResolveWindowBoundaries(t *testing.T) {
	sched := testSchedule(t)

	// opensAt is inclusive.
	if res := Resolve(sched, at(7, 0)); res.Active == nil {
		t.Error("expected session active exactly at opensAt")
	}
	// closesAt is exclusive.
	if res := Resolve(sched, at(8, 0)); res.Active != nil {
		t.Error("expected no session exactly at closesAt")
	}
}

func TestResolveOverlapFirstWins(t *testing.T) {
	sched := Schedule{Days: []Day{{
		Date: "2025-03-10",
		Sessions: []Session{
			{ID: "first", OpensAt: 420, ClosesAt: 480},
			{ID: "second", OpensAt: 420, ClosesAt: 510},
		},
	}}}
	res := Resolve(sched, at(7, 30))
	if res.Active == nil || res.Active.ID != "first" {
		t.Errorf("expected first-defined session to win overlap, got %+v", res.Active)
	}
}

func TestIsLate(t *testing.T) {
	sched := testSchedule(t)
	withLate := sched.Days[0].Sessions[0]
	withoutLate := sched.Days[0].Sessions[1]

	if IsLate(withLate, at(7, 14)) {
		t.Error("07:14 should be within grace")
	}
	// The grace period ends exactly at the threshold.
	if !IsLate(withLate, at(7, 15)) {
		t.Error("07:15 should be late")
	}
	if !IsLate(withLate, at(7, 30)) {
		t.Error("07:30 should be late")
	}
	if IsLate(withoutLate, at(12, 29)) {
		t.Error("session without threshold can never be late")
	}
}

func TestIsLateMonotonic(t *testing.T) {
	sess := testSchedule(t).Days[0].Sessions[0]
	late := false
	for m := 0; m < 60; m++ {
		now := at(7, m)
		if IsLate(sess, now) {
			late = true
		} else if late {
			t.Fatalf("late flipped back to on-time at %s", now)
		}
	}
	if !late {
		t.Fatal("session never became late")
	}
}

func TestFindSession(t *testing.T) {
	sched := testSchedule(t)
	if s := FindSession(sched, "s-mo"); s == nil || s.Name != "Morning Out" {
		t.Errorf("FindSession(s-mo) = %+v", s)
	}
	if s := FindSession(sched, "nope"); s != nil {
		t.Errorf("expected nil for unknown id, got %+v", s)
	}
}
