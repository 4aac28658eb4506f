package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidStartDate rejects a schedule write without a usable start
	// date. Surfaced to the caller synchronously, never retried.
	ErrInvalidStartDate = errors.New("invalid start date")

	// ErrMediaMismatch rejects an update that would move a schedule entry to
	// another media item.
	ErrMediaMismatch = errors.New("schedule belongs to another media")
)

// UpdateParams describes one create-or-update of a schedule entry. A nil ID
// creates a new entry for the media item.
type UpdateParams struct {
	ID        *uuid.UUID
	MediaID   uuid.UUID
	StartDate time.Time
	IsActive  bool
}
