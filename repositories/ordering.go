package repositories

import (
	"sort"
	"time"

	"github.com/Prot0type/portfolio-website/models"
)

// Now returns the current store timestamp: UTC, truncated to microseconds
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NextUpdatedAt returns the updated_at for a mutation at now of a record last updated at previous.
// The result is always strictly after previous, even when the clock did not advance.
func NextUpdatedAt(previous, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(previous) {
		return previous.Add(time.Microsecond)
	}
	return now
}

// Less reports whether a sorts before b: sort_order desc, project_date desc,
// updated_at desc, then project_id asc so that the order is total.
func Less(a, b *models.ProjectRecord) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder > b.SortOrder
	}
	if a.ProjectDate != b.ProjectDate {
		return a.ProjectDate > b.ProjectDate
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ProjectID < b.ProjectID
}

// SortProjects orders records in place for listing
func SortProjects(records []*models.ProjectRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}
