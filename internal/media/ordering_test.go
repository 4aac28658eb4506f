package media

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"
)

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}

	return t
}

func TestUnitSortFeatured(t *testing.T) {
	a := Media{ID: uuid.New(), Title: "A", FeaturedDate: pointy.Pointer(ts("2026-01-21T10:00:00Z")), AddDate: ts("2025-06-01T00:00:00Z")}
	b := Media{ID: uuid.New(), Title: "B", FeaturedDate: pointy.Pointer(ts("2026-01-20T15:30:00Z")), AddDate: ts("2025-06-02T00:00:00Z")}
	c := Media{ID: uuid.New(), Title: "C", FeaturedDate: pointy.Pointer(ts("2026-01-15T09:00:00Z")), AddDate: ts("2025-06-03T00:00:00Z")}
	d := Media{ID: uuid.New(), Title: "D", FeaturedDate: nil, AddDate: ts("2020-01-01T00:00:00Z")}

	items := []Media{d, c, a, b}
	SortFeatured(items)

	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}

	require.Equal(t, []string{"A", "B", "C", "D"}, titles)
}

func TestUnitBefore(t *testing.T) {
	featured := pointy.Pointer(ts("2026-01-21T10:00:00Z"))
	older := pointy.Pointer(ts("2026-01-20T10:00:00Z"))

	for name, tc := range map[string]struct {
		a        Media
		b        Media
		expected bool
	}{
		"dated before undated": {
			a:        Media{FeaturedDate: featured},
			b:        Media{FeaturedDate: nil, AddDate: ts("2030-01-01T00:00:00Z")},
			expected: true,
		},
		"undated after dated": {
			a:        Media{FeaturedDate: nil, AddDate: ts("2030-01-01T00:00:00Z")},
			b:        Media{FeaturedDate: older},
			expected: false,
		},
		"newer featured date first": {
			a:        Media{FeaturedDate: featured},
			b:        Media{FeaturedDate: older},
			expected: true,
		},
		"equal featured dates fall back to add date": {
			a:        Media{FeaturedDate: featured, AddDate: ts("2025-06-02T00:00:00Z")},
			b:        Media{FeaturedDate: pointy.Pointer(featured.UTC()), AddDate: ts("2025-06-01T00:00:00Z")},
			expected: true,
		},
		"both undated fall back to add date": {
			a:        Media{AddDate: ts("2025-06-02T00:00:00Z")},
			b:        Media{AddDate: ts("2025-06-01T00:00:00Z")},
			expected: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, Before(tc.a, tc.b))
		})
	}
}

func TestUnitBeforeIDTieBreak(t *testing.T) {
	date := pointy.Pointer(ts("2026-01-21T10:00:00Z"))
	added := ts("2025-06-01T00:00:00Z")

	low := Media{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), FeaturedDate: date, AddDate: added}
	high := Media{ID: uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"), FeaturedDate: date, AddDate: added}

	require.True(t, Before(high, low))
	require.False(t, Before(low, high))
}
