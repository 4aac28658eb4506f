package media

import (
	"time"

	"github.com/google/uuid"
)

// Media is the content record owning the durable featured state.
//
// FeaturedDate is stamped on every not-featured to featured transition and is
// never cleared when the item is unfeatured: it is the historical record of
// the last featuring. A nil FeaturedDate marks a never-featured item and
// sorts as the oldest possible value in listings.
type Media struct {
	ID uuid.UUID `gorm:"primary_key"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Title   string
	AddDate time.Time

	Featured     bool
	FeaturedDate *time.Time `gorm:"index"`
}

func (Media) TableName() string {
	return "media"
}
