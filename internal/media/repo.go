package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EngageMedia-video/featured-storage/internal/storage"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, item *Media) error {
	return storage.Executor(ctx, r.db).Create(item).Error
}

func (r *Repo) Save(ctx context.Context, item *Media) error {
	return storage.Executor(ctx, r.db).Save(item).Error
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Media, error) {
	var res Media
	err := storage.Executor(ctx, r.db).
		Where(&Media{ID: id}).
		Take(&res).
		Error
	if err != nil {
		return nil, fmt.Errorf("get media by id #%s: %w", id, err)
	}

	return &res, nil
}

// GetByIDForUpdate reads the row under an exclusive lock. Every mutation of
// the featured state goes through this read so concurrent writers serialize
// on the media row for the whole read-modify-write cycle.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Media, error) {
	var res Media
	err := storage.Executor(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&Media{ID: id}).
		Take(&res).
		Error
	if err != nil {
		return nil, fmt.Errorf("get media by id #%s for update: %w", id, err)
	}

	return &res, nil
}

func (r *Repo) GetByFilters(ctx context.Context, filters []Filter) ([]Media, error) {
	db := storage.Executor(ctx, r.db).Model(&Media{})
	for _, f := range filters {
		db = f.Apply(db)
	}

	var list []Media
	if err := db.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get media by filters: %w", err)
	}

	return list, nil
}

// ListVisibleFeatured returns featured media visible at the given moment.
// An item whose only claim to visibility is an active schedule that has not
// started yet is excluded; the exclusion is recomputed on every call, so an
// item becomes visible as the clock passes its start date without any write.
func (r *Repo) ListVisibleFeatured(ctx context.Context, now time.Time) ([]Media, error) {
	var res []Media
	err := storage.Executor(ctx, r.db).
		Where("featured = true").
		Where(`not exists (
			select 1 from featured_schedules fs
			where fs.media_id = media.id
			  and fs.is_active = true
			  and fs.start_date > ?)`, now).
		Find(&res).
		Error
	if err != nil {
		return nil, fmt.Errorf("list visible featured media: %w", err)
	}

	return res, nil
}
