package schedule

import (
	"time"

	"github.com/google/uuid"
)

// FeatureSchedule is a durable record of one featuring event: past or future
// activation of a media item. Rows are never deleted, they form the featuring
// history of the item.
type FeatureSchedule struct {
	ID      uuid.UUID `gorm:"primary_key"`
	MediaID uuid.UUID `gorm:"index"`

	CreatedAt time.Time

	StartDate time.Time `gorm:"index"`
	IsActive  bool
}

func (FeatureSchedule) TableName() string {
	return "featured_schedules"
}
