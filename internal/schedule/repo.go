package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/EngageMedia-video/featured-storage/internal/storage"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, item *FeatureSchedule) error {
	return storage.Executor(ctx, r.db).Create(item).Error
}

func (r *Repo) Update(ctx context.Context, item *FeatureSchedule) error {
	return storage.Executor(ctx, r.db).Save(item).Error
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*FeatureSchedule, error) {
	var res FeatureSchedule
	err := storage.Executor(ctx, r.db).
		Where(&FeatureSchedule{ID: id}).
		Take(&res).
		Error
	if err != nil {
		return nil, fmt.Errorf("get schedule by id #%s: %w", id, err)
	}

	return &res, nil
}

func (r *Repo) GetByMediaID(ctx context.Context, mediaID uuid.UUID) ([]FeatureSchedule, error) {
	var res []FeatureSchedule
	err := storage.Executor(ctx, r.db).
		Where(&FeatureSchedule{MediaID: mediaID}).
		Order("start_date desc").
		Find(&res).
		Error
	if err != nil {
		return nil, fmt.Errorf("get schedules for media #%s: %w", mediaID, err)
	}

	return res, nil
}
