package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open()
	require.NoError(t, err)
	return db
}

func TestLessonRepository_QueryLessons(t *testing.T) {
	ctx := context.Background()
	repo := NewLessonRepository(openDB(t))
	start := time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)

	for i, title := range []string{"b", "c", "a"} {
		_, err := repo.CreateLesson(ctx, lesson.Lesson{
			ID:           title,
			TenantID:     "t-1",
			CourseID:     "c-1",
			Title:        title,
			StartsAt:     start.AddDate(0, 0, 7*i),
			DisplayOrder: i + 1,
		})
		require.NoError(t, err)
	}
	_, err := repo.CreateLesson(ctx, lesson.Lesson{ID: "other", TenantID: "t-2", CourseID: "c-1"})
	require.NoError(t, err)

	titles := func(lessons []lesson.Lesson) []string {
		out := make([]string, 0, len(lessons))
		for _, l := range lessons {
			out = append(out, l.Title)
		}
		return out
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default", want: []string{"b", "c", "a"}},
		{name: "title", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []string{"a", "b", "c"}},
		{name: "latest first", ordering: []core.DBOrdering{{Field: "starts_at"}}, want: []string{"a", "c", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lessons, err := repo.QueryLessons(ctx, "t-1", "c-1", tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(lessons))
		})
	}
}

func TestLessonRepository_AttachMeeting(t *testing.T) {
	ctx := context.Background()
	repo := NewLessonRepository(openDB(t))
	_, err := repo.CreateLesson(ctx, lesson.Lesson{ID: "l-1", TenantID: "t-1"})
	require.NoError(t, err)

	room := lesson.MeetingResource{Provider: lesson.ProviderDaily, ExternalID: "r-1", Name: "intro-1"}
	assert.Equal(t, lesson.ErrLessonNotFound, repo.AttachMeeting(ctx, "t-2", "l-1", room))
	require.NoError(t, repo.AttachMeeting(ctx, "t-1", "l-1", room))

	lessons, err := repo.ListLessonsByID(ctx, "t-1", []string{"l-1"})
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	require.NotNil(t, lessons[0].DailyRoom)
	assert.Equal(t, "intro-1", lessons[0].DailyRoom.Name)
}

func TestBatchRepository_CreateBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(openDB(t))

	first := lesson.Batch{ID: "b-1", TenantID: "t-1", IdempotencyKey: "term-1"}
	_, err := repo.CreateBatch(ctx, first)
	require.NoError(t, err)

	_, err = repo.CreateBatch(ctx, lesson.Batch{ID: "b-2", TenantID: "t-1", IdempotencyKey: "term-1"})
	assert.Equal(t, lesson.ErrDuplicateBatch, err)

	_, err = repo.CreateBatch(ctx, lesson.Batch{ID: "b-3", TenantID: "t-2", IdempotencyKey: "term-1"})
	assert.NoError(t, err)

	first.Failed = true
	require.NoError(t, repo.FinishBatch(ctx, first))
	_, err = repo.CreateBatch(ctx, lesson.Batch{ID: "b-4", TenantID: "t-1", IdempotencyKey: "term-1"})
	assert.NoError(t, err, "a failed batch frees its key")
}

func TestProvisionRepository_QueryIntents(t *testing.T) {
	ctx := context.Background()
	repo := NewProvisionRepository(openDB(t))
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	seed := []lesson.ProvisionIntent{
		{ID: "i-1", Status: lesson.StatusOrphaned, CreatedAt: now, UpdatedAt: now.Add(-time.Hour)},
		{ID: "i-2", Status: lesson.StatusPending, CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(-time.Hour)},
		{ID: "i-3", Status: lesson.StatusAttached, CreatedAt: now.Add(2 * time.Second), UpdatedAt: now.Add(-time.Hour)},
		{ID: "i-4", Status: lesson.StatusPending, CreatedAt: now.Add(3 * time.Second), UpdatedAt: now},
	}
	for _, in := range seed {
		_, err := repo.CreateIntent(ctx, in)
		require.NoError(t, err)
	}

	got, err := repo.QueryIntents(ctx, lesson.IntentFilter{
		Statuses:      []lesson.ProvisionStatus{lesson.StatusOrphaned, lesson.StatusPending},
		UpdatedBefore: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i-1", got[0].ID)
	assert.Equal(t, "i-2", got[1].ID)

	got, err = repo.QueryIntents(ctx, lesson.IntentFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.Error(t, repo.UpdateIntent(ctx, lesson.ProvisionIntent{ID: "unknown"}))
}
