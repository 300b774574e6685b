// Package repotest holds the behavioural contract every ProjectRepository must satisfy.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository for one subtest
type Factory func(t *testing.T) repositories.ProjectRepository

// NewRecord returns a valid record ready for Create
func NewRecord(id string, status models.ProjectStatus, sortOrder int, date string) *models.ProjectRecord {
	return models.NewProjectRecord(&models.ProjectCreate{
		ProjectID:   id,
		Title:       "Project " + id,
		Description: "Description of " + id,
		Tags:        []string{"primary", "secondary"},
		Category:    models.CategoryWork,
		ProjectDate: date,
		Images:      []models.ProjectImage{{Key: "k-" + id, URL: "/media/k-" + id, Alt: id}},
		Status:      status,
		SortOrder:   sortOrder,
		Extra:       map[string]interface{}{"client": "Internal", "nested": map[string]interface{}{"n": "v"}},
	})
}

func ptr[T any](v T) *T {
	return &v
}

// Run executes the repository contract against repositories produced by factory
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create then get round trips", func(t *testing.T) {
		repo := factory(t)
		input := NewRecord("p1", models.StatusDraft, 2, "2026-02-08")

		created, err := repo.Create(ctx, input)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))
		assert.Equal(t, time.UTC, created.CreatedAt.Location())

		got, found, err := repo.Get(ctx, "p1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created, got)

		assert.Equal(t, input.Title, got.Title)
		assert.Equal(t, input.Tags, got.Tags)
		assert.Equal(t, input.Images, got.Images)
		assert.Equal(t, input.Extra, got.Extra)
		assert.Equal(t, "primary", got.PrimaryTag())
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Create(ctx, NewRecord("dup", models.StatusDraft, 0, "2026-01-01"))
		require.NoError(t, err)

		second := NewRecord("dup", models.StatusPublished, 9, "2026-01-01")
		_, err = repo.Create(ctx, second)
		assert.ErrorIs(t, err, repositories.ErrDuplicateID)

		got, _, err := repo.Get(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, models.StatusDraft, got.Status)
	})

	t.Run("missing record is not an error", func(t *testing.T) {
		repo := factory(t)
		got, found, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := factory(t)
		input := NewRecord("copy", models.StatusDraft, 0, "2026-01-01")
		created, err := repo.Create(ctx, input)
		require.NoError(t, err)

		input.Tags[0] = "mutated-input"
		created.Tags[0] = "mutated-output"
		created.Extra["client"] = "mutated"

		got, _, err := repo.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "primary", got.Tags[0])
		assert.Equal(t, "Internal", got.Extra["client"])

		got.Title = "mutated-get"
		again, _, err := repo.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "Project copy", again.Title)
	})

	t.Run("update merges only present fields", func(t *testing.T) {
		repo := factory(t)
		created, err := repo.Create(ctx, NewRecord("u1", models.StatusDraft, 2, "2026-02-08"))
		require.NoError(t, err)

		patch := &models.ProjectPatch{
			Status: ptr(models.StatusPublished),
			Title:  ptr("Case Study Updated"),
		}
		updated, found, err := repo.Update(ctx, "u1", patch)
		require.NoError(t, err)
		require.True(t, found)

		assert.Equal(t, models.StatusPublished, updated.Status)
		assert.Equal(t, "Case Study Updated", updated.Title)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.Tags, updated.Tags)
		assert.Equal(t, created.Category, updated.Category)
		assert.Equal(t, created.ProjectDate, updated.ProjectDate)
		assert.Equal(t, created.Images, updated.Images)
		assert.Equal(t, created.SortOrder, updated.SortOrder)
		assert.Equal(t, created.Extra, updated.Extra)
		assert.Equal(t, created.ProjectID, updated.ProjectID)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		got, _, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("updated_at strictly increases", func(t *testing.T) {
		repo := factory(t)
		created, err := repo.Create(ctx, NewRecord("mono", models.StatusDraft, 0, "2026-01-01"))
		require.NoError(t, err)

		previous := created.UpdatedAt
		for i := 0; i < 5; i++ {
			updated, found, err := repo.Update(ctx, "mono", &models.ProjectPatch{SortOrder: ptr(i)})
			require.NoError(t, err)
			require.True(t, found)
			assert.True(t, updated.UpdatedAt.After(previous), "update %d did not advance updated_at", i)
			assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
			previous = updated.UpdatedAt
		}
	})

	t.Run("update of missing record reports not found", func(t *testing.T) {
		repo := factory(t)
		got, found, err := repo.Update(ctx, "ghost", &models.ProjectPatch{Title: ptr("x")})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)

		_, found, err = repo.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("list filters and orders", func(t *testing.T) {
		repo := factory(t)
		seed := []*models.ProjectRecord{
			NewRecord("draft-high", models.StatusDraft, 5, "2026-01-01"),
			NewRecord("pub-low", models.StatusPublished, 0, "2026-03-01"),
			NewRecord("pub-high-old", models.StatusPublished, 3, "2025-01-01"),
			NewRecord("pub-high-new", models.StatusPublished, 3, "2026-01-01"),
		}
		for _, r := range seed {
			_, err := repo.Create(ctx, r)
			require.NoError(t, err)
		}

		published, err := repo.List(ctx, models.FilterPublished)
		require.NoError(t, err)
		assert.Equal(t, []string{"pub-high-new", "pub-high-old", "pub-low"}, projectIDs(published))

		drafts, err := repo.List(ctx, models.FilterDraft)
		require.NoError(t, err)
		assert.Equal(t, []string{"draft-high"}, projectIDs(drafts))

		all, err := repo.List(ctx, models.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, []string{"draft-high", "pub-high-new", "pub-high-old", "pub-low"}, projectIDs(all))
	})

	t.Run("list breaks full ties by most recent update", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Create(ctx, NewRecord("first", models.StatusPublished, 1, "2026-01-01"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, NewRecord("second", models.StatusPublished, 1, "2026-01-01"))
		require.NoError(t, err)

		_, _, err = repo.Update(ctx, "first", &models.ProjectPatch{Title: ptr("touched")})
		require.NoError(t, err)

		listed, err := repo.List(ctx, models.FilterPublished)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, projectIDs(listed))
	})

	t.Run("delete reports whether something was deleted", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Create(ctx, NewRecord("del", models.StatusDraft, 0, "2026-01-01"))
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, "del")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "del")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, found, err := repo.Get(ctx, "del")
		require.NoError(t, err)
		assert.False(t, found)

		deleted, err = repo.Delete(ctx, "never-existed")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("concurrent deletes succeed exactly once", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Create(ctx, NewRecord("race", models.StatusDraft, 0, "2026-01-01"))
		require.NoError(t, err)

		const callers = 16
		var wg sync.WaitGroup
		start := make(chan struct{})
		results := make(chan bool, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				deleted, err := repo.Delete(ctx, "race")
				assert.NoError(t, err)
				results <- deleted
			}()
		}
		close(start)
		wg.Wait()
		close(results)

		wins := 0
		for deleted := range results {
			if deleted {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("concurrent updates of different fields are all kept", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Create(ctx, NewRecord("merge", models.StatusDraft, 0, "2026-01-01"))
		require.NoError(t, err)

		patches := []*models.ProjectPatch{
			{Title: ptr("new title")},
			{Description: ptr("new description")},
			{SortOrder: ptr(7)},
			{IsHighlighted: ptr(true)},
			{Category: ptr(models.CategoryFreelance)},
		}

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i, patch := range patches {
			wg.Add(1)
			go func(i int, patch *models.ProjectPatch) {
				defer wg.Done()
				<-start
				_, found, err := repo.Update(ctx, "merge", patch)
				assert.NoError(t, err, fmt.Sprintf("patch %d", i))
				assert.True(t, found)
			}(i, patch)
		}
		close(start)
		wg.Wait()

		got, _, err := repo.Get(ctx, "merge")
		require.NoError(t, err)
		assert.Equal(t, "new title", got.Title)
		assert.Equal(t, "new description", got.Description)
		assert.Equal(t, 7, got.SortOrder)
		assert.True(t, got.IsHighlighted)
		assert.Equal(t, models.CategoryFreelance, got.Category)
	})
}

func projectIDs(records []*models.ProjectRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ProjectID
	}
	return out
}
