// Package scan implements the attendance scan pipeline: the durable scan
// queue and the classifier that turns a captured credential into an
// attendance outcome using only local data and the device clock.
package scan

import (
	"time"

	"scanengine/internal/schedule"
)

// Status is the attendance outcome of one scan attempt.
type Status string

const (
	StatusPresent   Status = "PRESENT"
	StatusLate      Status = "LATE"
	StatusDenied    Status = "DENIED"
	StatusDuplicate Status = "DUPLICATE"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusDenied, StatusDuplicate:
		return true
	default:
		return false
	}
}

// Attended reports whether the status represents a counted attendance.
// Only these records are ever transmitted to the remote store.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// SyncStatus is the upload lifecycle flag on a queued record.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

// Record is one physical scan attempt. Records are immutable once
// appended except for the SyncStatus flip, and are never deleted.
type Record struct {
	ID               string
	EventID          string
	StudentID        string // empty when the credential was unresolved
	CredentialHash   string
	ScannedAt        time.Time
	Status           Status
	Reason           string
	SessionID        string // empty when no session was active
	SessionName      string
	SessionDirection schedule.Direction
	SyncStatus       SyncStatus
	CreatedAt        time.Time
}
