package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/EngageMedia-video/featured-storage/internal/metrics"
	"github.com/EngageMedia-video/featured-storage/internal/schedule"
	"github.com/EngageMedia-video/featured-storage/internal/storage"
)

type MediaStore interface {
	Create(ctx context.Context, item *Media) error
	Save(ctx context.Context, item *Media) error
	GetByID(ctx context.Context, id uuid.UUID) (*Media, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Media, error)
	GetByFilters(ctx context.Context, filters []Filter) ([]Media, error)
	ListVisibleFeatured(ctx context.Context, now time.Time) ([]Media, error)
}

type ScheduleStore interface {
	Create(ctx context.Context, item *schedule.FeatureSchedule) error
	Update(ctx context.Context, item *schedule.FeatureSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*schedule.FeatureSchedule, error)
	GetByMediaID(ctx context.Context, mediaID uuid.UUID) ([]schedule.FeatureSchedule, error)
}

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service keeps the media featured flag and the schedule history consistent.
// Every mutation of the featured state runs in one transaction and takes the
// row lock on the media item before reading it, so racing writers serialize
// and the last one to commit wins on featured_date.
type Service struct {
	repo         MediaStore
	schedules    ScheduleStore
	tx           TxManager
	invalidators []Invalidator

	now func() time.Time
}

func NewService(repo MediaStore, schedules ScheduleStore, tx TxManager, invalidators ...Invalidator) *Service {
	return &Service{
		repo:         repo,
		schedules:    schedules,
		tx:           tx,
		invalidators: invalidators,
		now:          time.Now,
	}
}

func (s *Service) Add(ctx context.Context, title string, addDate time.Time) (*Media, error) {
	if addDate.IsZero() {
		addDate = s.now()
	}

	item := Media{
		ID:      uuid.New(),
		Title:   title,
		AddDate: addDate,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}

	return &item, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Media, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFilters(ctx context.Context, filters []Filter) ([]Media, error) {
	return s.repo.GetByFilters(ctx, filters)
}

func (s *Service) GetSchedules(ctx context.Context, mediaID uuid.UUID) ([]schedule.FeatureSchedule, error) {
	return s.schedules.GetByMediaID(ctx, mediaID)
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*schedule.FeatureSchedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// SetFeatured toggles the featured flag directly. Only the not-featured to
// featured transition stamps featured_date and opens a schedule entry;
// repeating a save with the same value changes nothing. Unfeaturing keeps
// featured_date untouched as featuring history.
func (s *Service) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*Media, error) {
	var result *Media
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get media: %w", err)
		}

		previous := current.Featured
		current.Featured = featured
		if err := s.persist(ctx, current, previous); err != nil {
			return err
		}

		result = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Update is the general save path for a media item. The stored featured value
// is snapshotted under the row lock before the write, so the transition is
// detected on value change and never on the level value alone. A record that
// does not exist yet counts as previously not featured.
func (s *Service) Update(ctx context.Context, item *Media) (*Media, error) {
	var result *Media
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		previous := false
		current, err := s.repo.GetByIDForUpdate(ctx, item.ID)
		switch {
		case err == nil:
			previous = current.Featured
			current.Title = item.Title
			current.Featured = item.Featured
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = item
			if current.AddDate.IsZero() {
				current.AddDate = s.now()
			}
			if err := s.repo.Create(ctx, current); err != nil {
				return fmt.Errorf("create media: %w", err)
			}
		default:
			return fmt.Errorf("get media: %w", err)
		}

		if err := s.persist(ctx, current, previous); err != nil {
			return err
		}

		result = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ApplySchedule creates or updates a schedule entry and pushes its state into
// the media row. Activation propagates start_date into featured_date even
// when the date is in the future: visibility is gated at read time, not by
// delaying the write. Deactivation only mutates the schedule entry; it never
// un-features the item.
func (s *Service) ApplySchedule(ctx context.Context, params schedule.UpdateParams) (*schedule.FeatureSchedule, error) {
	if params.StartDate.IsZero() {
		return nil, schedule.ErrInvalidStartDate
	}

	var result *schedule.FeatureSchedule
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetByIDForUpdate(ctx, params.MediaID)
		if err != nil {
			return fmt.Errorf("get media: %w", err)
		}

		sched, err := s.upsertSchedule(ctx, item.ID, params)
		if err != nil {
			return err
		}

		if sched.IsActive {
			start := sched.StartDate
			item.Featured = true
			item.FeaturedDate = &start
			if err := s.repo.Save(ctx, item); err != nil {
				return fmt.Errorf("save media: %w", err)
			}

			metrics.CollectFeatureTransition("schedule")
		}

		s.queueInvalidation(ctx, item.ID)
		result = sched

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// VisibleFeatured composes the visibility filter with the deterministic
// listing order.
func (s *Service) VisibleFeatured(ctx context.Context, now time.Time) ([]Media, error) {
	if now.IsZero() {
		now = s.now()
	}

	items, err := s.repo.ListVisibleFeatured(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list visible featured: %w", err)
	}

	SortFeatured(items)

	return items, nil
}

func (s *Service) persist(ctx context.Context, item *Media, previousFeatured bool) error {
	turnedOn := item.Featured && !previousFeatured
	if turnedOn {
		now := s.now()
		item.FeaturedDate = &now
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return fmt.Errorf("save media: %w", err)
	}

	if turnedOn {
		err := s.schedules.Create(ctx, &schedule.FeatureSchedule{
			ID:        uuid.New(),
			MediaID:   item.ID,
			CreatedAt: s.now(),
			StartDate: *item.FeaturedDate,
			IsActive:  true,
		})
		if err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}

		metrics.CollectFeatureTransition("manual")
	}

	if item.Featured != previousFeatured {
		s.queueInvalidation(ctx, item.ID)
	}

	return nil
}

func (s *Service) upsertSchedule(ctx context.Context, mediaID uuid.UUID, params schedule.UpdateParams) (*schedule.FeatureSchedule, error) {
	if params.ID == nil {
		sched := schedule.FeatureSchedule{
			ID:        uuid.New(),
			MediaID:   mediaID,
			CreatedAt: s.now(),
			StartDate: params.StartDate,
			IsActive:  params.IsActive,
		}
		if err := s.schedules.Create(ctx, &sched); err != nil {
			return nil, fmt.Errorf("create schedule: %w", err)
		}

		return &sched, nil
	}

	sched, err := s.schedules.GetByID(ctx, *params.ID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	if sched.MediaID != mediaID {
		return nil, schedule.ErrMediaMismatch
	}

	sched.StartDate = params.StartDate
	sched.IsActive = params.IsActive
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	return sched, nil
}

// queueInvalidation defers cache invalidation until the enclosing transaction
// commits, so caches are never dropped before the write is durable. Failures
// are logged and swallowed: listings stay correct when recomputed from the
// store.
func (s *Service) queueInvalidation(ctx context.Context, id uuid.UUID) {
	keys := ListingKeys(id)
	storage.OnCommit(ctx, func() {
		for _, inv := range s.invalidators {
			err := inv.Invalidate(keys...)
			metrics.CollectCacheInvalidation(err)
			if err != nil {
				log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
			}
		}
	})
}
