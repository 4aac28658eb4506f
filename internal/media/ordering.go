package media

import (
	"sort"
	"strings"
)

// Before reports whether a sorts ahead of b in featured listings.
//
// The key is composite: items with a featured date come before items without
// one (nil counts as the oldest possible value), newer featured dates first,
// then newer add dates, then id descending as the final deterministic
// tie-break. Comparing the nil-ness explicitly keeps the order independent of
// database NULL-ordering behavior.
func Before(a, b Media) bool {
	switch {
	case a.FeaturedDate != nil && b.FeaturedDate == nil:
		return true
	case a.FeaturedDate == nil && b.FeaturedDate != nil:
		return false
	case a.FeaturedDate != nil && b.FeaturedDate != nil:
		if !a.FeaturedDate.Equal(*b.FeaturedDate) {
			return a.FeaturedDate.After(*b.FeaturedDate)
		}
	}

	if !a.AddDate.Equal(b.AddDate) {
		return a.AddDate.After(b.AddDate)
	}

	return strings.Compare(a.ID.String(), b.ID.String()) > 0
}

// SortFeatured orders a featured listing in place.
func SortFeatured(items []Media) {
	sort.Slice(items, func(i, j int) bool {
		return Before(items[i], items[j])
	})
}
