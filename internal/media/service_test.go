package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"
	"gorm.io/gorm"

	"github.com/EngageMedia-video/featured-storage/internal/schedule"
	"github.com/EngageMedia-video/featured-storage/internal/storage"
)

// fakeTxManager mirrors storage.Manager: post-commit hooks run only when the
// callback succeeds.
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, hooks := storage.BeginHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}

	hooks.Run()

	return nil
}

type memDB struct {
	media     map[uuid.UUID]Media
	schedules map[uuid.UUID]schedule.FeatureSchedule
}

func newMemDB() *memDB {
	return &memDB{
		media:     make(map[uuid.UUID]Media),
		schedules: make(map[uuid.UUID]schedule.FeatureSchedule),
	}
}

type memMediaStore struct {
	db *memDB

	saveErr error
}

func (s *memMediaStore) Create(_ context.Context, item *Media) error {
	s.db.media[item.ID] = *item

	return nil
}

func (s *memMediaStore) Save(_ context.Context, item *Media) error {
	if s.saveErr != nil {
		return s.saveErr
	}

	s.db.media[item.ID] = *item

	return nil
}

func (s *memMediaStore) GetByID(_ context.Context, id uuid.UUID) (*Media, error) {
	item, ok := s.db.media[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	return &item, nil
}

func (s *memMediaStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Media, error) {
	return s.GetByID(ctx, id)
}

func (s *memMediaStore) GetByFilters(_ context.Context, _ []Filter) ([]Media, error) {
	list := make([]Media, 0, len(s.db.media))
	for _, item := range s.db.media {
		list = append(list, item)
	}

	return list, nil
}

func (s *memMediaStore) ListVisibleFeatured(_ context.Context, now time.Time) ([]Media, error) {
	var list []Media
	for _, item := range s.db.media {
		if !item.Featured {
			continue
		}

		hidden := false
		for _, sc := range s.db.schedules {
			if sc.MediaID == item.ID && sc.IsActive && sc.StartDate.After(now) {
				hidden = true

				break
			}
		}
		if !hidden {
			list = append(list, item)
		}
	}

	return list, nil
}

type memScheduleStore struct {
	db *memDB

	createErr error
}

func (s *memScheduleStore) Create(_ context.Context, item *schedule.FeatureSchedule) error {
	if s.createErr != nil {
		return s.createErr
	}

	s.db.schedules[item.ID] = *item

	return nil
}

func (s *memScheduleStore) Update(_ context.Context, item *schedule.FeatureSchedule) error {
	s.db.schedules[item.ID] = *item

	return nil
}

func (s *memScheduleStore) GetByID(_ context.Context, id uuid.UUID) (*schedule.FeatureSchedule, error) {
	item, ok := s.db.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	return &item, nil
}

func (s *memScheduleStore) GetByMediaID(_ context.Context, mediaID uuid.UUID) ([]schedule.FeatureSchedule, error) {
	var list []schedule.FeatureSchedule
	for _, item := range s.db.schedules {
		if item.MediaID == mediaID {
			list = append(list, item)
		}
	}

	return list, nil
}

type recordingInvalidator struct {
	calls [][]string
	err   error
}

func (r *recordingInvalidator) Invalidate(keys ...string) error {
	r.calls = append(r.calls, keys)

	return r.err
}

type fixture struct {
	db          *memDB
	media       *memMediaStore
	schedules   *memScheduleStore
	invalidator *recordingInvalidator
	service     *Service
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	f := &fixture{
		db:          db,
		media:       &memMediaStore{db: db},
		schedules:   &memScheduleStore{db: db},
		invalidator: &recordingInvalidator{},
		now:         ts("2026-03-01T09:00:00Z"),
	}

	f.service = NewService(f.media, f.schedules, fakeTxManager{}, f.invalidator)
	f.service.now = func() time.Time { return f.now }

	return f
}

func (f *fixture) seedMedia(t *testing.T, featured bool, featuredDate *time.Time) uuid.UUID {
	t.Helper()

	item := Media{
		ID:           uuid.New(),
		Title:        "item",
		AddDate:      ts("2025-06-01T00:00:00Z"),
		Featured:     featured,
		FeaturedDate: featuredDate,
	}
	f.db.media[item.ID] = item

	return item.ID
}

func TestUnitSetFeaturedTransition(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	item, err := f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)

	require.True(t, item.Featured)
	require.NotNil(t, item.FeaturedDate)
	require.Equal(t, f.now, *item.FeaturedDate)

	// the persisted row matches what the caller got back
	stored := f.db.media[id]
	require.True(t, stored.Featured)
	require.Equal(t, f.now, *stored.FeaturedDate)

	// exactly one schedule entry stamped "now" was opened
	require.Len(t, f.db.schedules, 1)
	for _, sc := range f.db.schedules {
		require.Equal(t, id, sc.MediaID)
		require.Equal(t, f.now, sc.StartDate)
		require.True(t, sc.IsActive)
	}

	require.Len(t, f.invalidator.calls, 1)
	require.Contains(t, f.invalidator.calls[0], FeaturedListKey)
}

func TestUnitSetFeaturedRepeatedLevelValue(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	_, err := f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)

	firstDate := *f.db.media[id].FeaturedDate

	f.now = f.now.Add(time.Hour)
	_, err = f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)

	// true -> true is a level value, not a transition
	require.Equal(t, firstDate, *f.db.media[id].FeaturedDate)
	require.Len(t, f.db.schedules, 1)
	require.Len(t, f.invalidator.calls, 1)
}

func TestUnitUnfeaturePreservesHistory(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	_, err := f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)
	t1 := *f.db.media[id].FeaturedDate

	f.now = f.now.Add(2 * time.Hour)
	item, err := f.service.SetFeatured(context.Background(), id, false)
	require.NoError(t, err)

	require.False(t, item.Featured)
	require.NotNil(t, item.FeaturedDate)
	require.Equal(t, t1, *item.FeaturedDate)
}

func TestUnitRefeatureUpdatesDate(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	_, err := f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)
	t1 := *f.db.media[id].FeaturedDate

	f.now = f.now.Add(time.Hour)
	_, err = f.service.SetFeatured(context.Background(), id, false)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	item, err := f.service.SetFeatured(context.Background(), id, true)
	require.NoError(t, err)

	require.Equal(t, f.now, *item.FeaturedDate)
	require.NotEqual(t, t1, *item.FeaturedDate)
	require.Len(t, f.db.schedules, 2)
}

func TestUnitApplyScheduleFutureDatePropagates(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	future := f.now.Add(24 * time.Hour)
	sched, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:   id,
		StartDate: future,
		IsActive:  true,
	})
	require.NoError(t, err)

	require.Equal(t, future, sched.StartDate)

	// start_date wins unconditionally, future or not
	stored := f.db.media[id]
	require.True(t, stored.Featured)
	require.Equal(t, future, *stored.FeaturedDate)

	require.Len(t, f.invalidator.calls, 1)
}

func TestUnitDeactivateScheduleLeavesMediaAlone(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	sched, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:   id,
		StartDate: f.now,
		IsActive:  true,
	})
	require.NoError(t, err)

	before := f.db.media[id]

	_, err = f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		ID:        pointy.Pointer(sched.ID),
		MediaID:   id,
		StartDate: sched.StartDate,
		IsActive:  false,
	})
	require.NoError(t, err)

	// deactivation never un-features
	after := f.db.media[id]
	require.Equal(t, before.Featured, after.Featured)
	require.Equal(t, *before.FeaturedDate, *after.FeaturedDate)
	require.False(t, f.db.schedules[sched.ID].IsActive)
}

func TestUnitApplyScheduleValidation(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	_, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:  id,
		IsActive: true,
	})
	require.ErrorIs(t, err, schedule.ErrInvalidStartDate)
	require.Empty(t, f.db.schedules)
	require.Empty(t, f.invalidator.calls)
}

func TestUnitApplyScheduleMediaMismatch(t *testing.T) {
	f := newFixture(t)
	first := f.seedMedia(t, false, nil)
	second := f.seedMedia(t, false, nil)

	sched, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:   first,
		StartDate: f.now,
		IsActive:  true,
	})
	require.NoError(t, err)

	_, err = f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		ID:        pointy.Pointer(sched.ID),
		MediaID:   second,
		StartDate: f.now,
		IsActive:  true,
	})
	require.ErrorIs(t, err, schedule.ErrMediaMismatch)
}

func TestUnitApplyScheduleUnknownMedia(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:   uuid.New(),
		StartDate: f.now,
		IsActive:  true,
	})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUnitNoInvalidationOnRollback(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	f.schedules.createErr = errors.New("insert failed")

	_, err := f.service.SetFeatured(context.Background(), id, true)
	require.Error(t, err)
	require.Empty(t, f.invalidator.calls)
}

func TestUnitUpdateTransitionDetection(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	item := Media{ID: id, Title: "renamed", Featured: true}
	updated, err := f.service.Update(context.Background(), &item)
	require.NoError(t, err)

	require.Equal(t, "renamed", updated.Title)
	require.Equal(t, f.now, *updated.FeaturedDate)
	require.Len(t, f.db.schedules, 1)

	// a second save with featured=true changes the title only
	f.now = f.now.Add(time.Hour)
	item2 := Media{ID: id, Title: "renamed again", Featured: true}
	updated, err = f.service.Update(context.Background(), &item2)
	require.NoError(t, err)

	require.Equal(t, "renamed again", updated.Title)
	require.NotEqual(t, f.now, *updated.FeaturedDate)
	require.Len(t, f.db.schedules, 1)
}

func TestUnitUpdateMissingRecordCountsAsNotFeatured(t *testing.T) {
	f := newFixture(t)

	item := Media{ID: uuid.New(), Title: "fresh", Featured: true}
	updated, err := f.service.Update(context.Background(), &item)
	require.NoError(t, err)

	require.True(t, updated.Featured)
	require.Equal(t, f.now, *updated.FeaturedDate)
	require.Len(t, f.db.schedules, 1)
}

func TestUnitVisibleFeaturedTimeGate(t *testing.T) {
	f := newFixture(t)
	id := f.seedMedia(t, false, nil)

	start := f.now.Add(time.Hour)
	_, err := f.service.ApplySchedule(context.Background(), schedule.UpdateParams{
		MediaID:   id,
		StartDate: start,
		IsActive:  true,
	})
	require.NoError(t, err)

	hiddenAt, err := f.service.VisibleFeatured(context.Background(), f.now)
	require.NoError(t, err)
	require.Empty(t, hiddenAt)

	// no write in between, the clock simply passes start_date
	visibleAt, err := f.service.VisibleFeatured(context.Background(), start.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, visibleAt, 1)
	require.Equal(t, id, visibleAt[0].ID)
}

func TestUnitVisibleFeaturedOrdered(t *testing.T) {
	f := newFixture(t)

	a := f.seedMedia(t, true, pointy.Pointer(ts("2026-01-21T10:00:00Z")))
	b := f.seedMedia(t, true, pointy.Pointer(ts("2026-01-20T15:30:00Z")))
	c := f.seedMedia(t, true, pointy.Pointer(ts("2026-01-15T09:00:00Z")))
	d := f.seedMedia(t, true, nil)

	list, err := f.service.VisibleFeatured(context.Background(), f.now)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(list))
	for _, item := range list {
		ids = append(ids, item.ID)
	}

	require.Equal(t, []uuid.UUID{a, b, c, d}, ids)
}
