// Package schedule holds the session schedule types and the pure
// resolution logic that maps a wall-clock instant to the active session.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is the part of day a session belongs to.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// Valid returns true when the period is a supported value.
func (p Period) Valid() bool {
	switch p {
	case PeriodMorning, PeriodAfternoon, PeriodEvening:
		return true
	default:
		return false
	}
}

// Direction marks a session as an entry or an exit window.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Valid returns true when the direction is a supported value.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// TimeOfDay is a minute offset from midnight. Schedules are authored at
// minute granularity ("07:15"), so comparisons truncate to the minute.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// At returns the minute-of-day for a wall-clock instant.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String formats the value as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the value as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid time of day %s", data)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Session is a named scanning window within one calendar day.
type Session struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Period    Period     `json:"period"`
	Direction Direction  `json:"direction"`
	OpensAt   TimeOfDay  `json:"opens_at"`
	ClosesAt  TimeOfDay  `json:"closes_at"`
	LateAfter *TimeOfDay `json:"late_after,omitempty"`
}

// Day groups the sessions of one calendar date ("2006-01-02").
type Day struct {
	Date     string    `json:"date"`
	Sessions []Session `json:"sessions"`
}

// Schedule is the versioned session schedule of one event. It is immutable
// once downloaded; changes require re-downloading the event snapshot.
type Schedule struct {
	Version int   `json:"version"`
	Days    []Day `json:"days"`
}

// Resolution is the outcome of resolving the active session: either an
// active session or a human-readable reason why none is active.
type Resolution struct {
	Active *Session
	Reason string
}

// Reasons surfaced to the operator when no session is active.
const (
	ReasonNoEventToday = "no event today"
	ReasonNotOpen      = "scanning is not open at this time"
)

// DateKey formats a wall-clock instant as a schedule date key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Resolve returns the single active session for now, or a reason why none
// is active. Sessions are matched opensAt <= now < closesAt in schedule
// order; on malformed overlapping schedules the first match wins. Resolve
// is deterministic and has no side effects, it is reevaluated on every
// scan.
func Resolve(sched Schedule, now time.Time) Resolution {
	date := DateKey(now)
	tod := At(now)
	for _, day := range sched.Days {
		if day.Date != date {
			continue
		}
		for i := range day.Sessions {
			sess := &day.Sessions[i]
			if sess.OpensAt <= tod && tod < sess.ClosesAt {
				return Resolution{Active: sess}
			}
		}
		return Resolution{Reason: ReasonNotOpen}
	}
	return Resolution{Reason: ReasonNoEventToday}
}

// IsLate reports whether a scan at now counts as late for the session.
// Sessions without a late threshold never produce LATE. The grace period
// ends exactly at the threshold, so now == lateAfter is late.
func IsLate(sess Session, now time.Time) bool {
	if sess.LateAfter == nil {
		return false
	}
	return At(now) >= *sess.LateAfter
}

// FindSession returns the session with the given id anywhere in the
// schedule, or nil. Used when reconciling queued scans whose session may
// not be today's.
func FindSession(sched Schedule, sessionID string) *Session {
	for _, day := range sched.Days {
		for i := range day.Sessions {
			if day.Sessions[i].ID == sessionID {
				return &day.Sessions[i]
			}
		}
	}
	return nil
}
