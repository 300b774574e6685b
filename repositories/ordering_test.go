package repositories

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, sortOrder int, date string, updated time.Time) *models.ProjectRecord {
	return &models.ProjectRecord{ProjectID: id, SortOrder: sortOrder, ProjectDate: date, UpdatedAt: updated}
}

func ids(records []*models.ProjectRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ProjectID
	}
	return out
}

func TestSortProjects(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []*models.ProjectRecord
		want    []string
	}{
		{
			name: "sort order descending",
			records: []*models.ProjectRecord{
				record("low", 0, "2026-01-01", base),
				record("high", 5, "2020-01-01", base),
				record("mid", 2, "2026-01-01", base),
			},
			want: []string{"high", "mid", "low"},
		},
		{
			name: "project date breaks sort order ties",
			records: []*models.ProjectRecord{
				record("older", 1, "2025-06-01", base),
				record("newer", 1, "2026-02-08", base),
			},
			want: []string{"newer", "older"},
		},
		{
			name: "updated at breaks date ties",
			records: []*models.ProjectRecord{
				record("stale", 1, "2026-01-01", base),
				record("fresh", 1, "2026-01-01", base.Add(time.Microsecond)),
			},
			want: []string{"fresh", "stale"},
		},
		{
			name: "project id breaks full ties",
			records: []*models.ProjectRecord{
				record("b", 1, "2026-01-01", base),
				record("a", 1, "2026-01-01", base),
			},
			want: []string{"a", "b"},
		},
		{
			name: "negative sort order",
			records: []*models.ProjectRecord{
				record("neg", -1, "2026-01-01", base),
				record("zero", 0, "2026-01-01", base),
			},
			want: []string{"zero", "neg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortProjects(tt.records)
			assert.Equal(t, tt.want, ids(tt.records))
		})
	}
}

func TestSortProjects_TotalOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []string{"2025-01-01", "2026-01-01"}

	var records []*models.ProjectRecord
	for i := 0; i < 40; i++ {
		records = append(records, record(
			string(rune('a'+i%26))+string(rune('a'+i/26)),
			i%3,
			dates[i%2],
			base.Add(time.Duration(i%4)*time.Second),
		))
	}

	expected := append([]*models.ProjectRecord(nil), records...)
	SortProjects(expected)

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 10; round++ {
		shuffled := append([]*models.ProjectRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		SortProjects(shuffled)
		require.Equal(t, ids(expected), ids(shuffled))
	}

	for i := 1; i < len(expected); i++ {
		assert.False(t, Less(expected[i], expected[i-1]), "position %d out of order", i)
	}
}

func TestNextUpdatedAt(t *testing.T) {
	previous := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("clock advanced", func(t *testing.T) {
		now := previous.Add(time.Second)
		assert.Equal(t, now, NextUpdatedAt(previous, now))
	})

	t.Run("clock stalled", func(t *testing.T) {
		assert.Equal(t, previous.Add(time.Microsecond), NextUpdatedAt(previous, previous))
	})

	t.Run("clock went backwards", func(t *testing.T) {
		assert.Equal(t, previous.Add(time.Microsecond), NextUpdatedAt(previous, previous.Add(-time.Hour)))
	})

	t.Run("sub-microsecond precision is dropped", func(t *testing.T) {
		now := previous.Add(time.Second + 999*time.Nanosecond)
		assert.Equal(t, previous.Add(time.Second), NextUpdatedAt(previous, now))
	})
}

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Microsecond))
}
