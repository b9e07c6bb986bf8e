package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type execResult int64

func (r execResult) LastInsertId() (int64, error) { return 0, nil }
func (r execResult) RowsAffected() (int64, error) { return int64(r), nil }

// captureExec records executed statements; queries are not supported.
type captureExec struct {
	query    string
	args     []interface{}
	affected int64
	err      error
}

var _ core.DBExecutor = (*captureExec)(nil)

func (e *captureExec) Exec(query string, args ...interface{}) (sql.Result, error) {
	return e.ExecContext(context.Background(), query, args...)
}

func (e *captureExec) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	e.query, e.args = query, args
	if e.err != nil {
		return nil, e.err
	}
	return execResult(e.affected), nil
}

func (e *captureExec) Query(string, ...interface{}) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (e *captureExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (e *captureExec) QueryRow(string, ...interface{}) *sql.Row { return nil }

func (e *captureExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func testLesson() lesson.Lesson {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	return lesson.Lesson{
		ID:              "3f2a9c1e-7b1d-4c55-9e0a-1234567890ab",
		TenantID:        "8a7a3d2e-6a4d-4d8e-9c85-2f1f0cbf7c11",
		CourseID:        "c0a8012e-9f3b-4c3e-8d7d-5b6f1c2a9e44",
		ModuleID:        "module-1",
		Title:           "Intro - Session 1",
		StartsAt:        time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Timezone:        "Asia/Jerusalem",
		DisplayOrder:    1,
		Zoom:            lesson.ZoomOptions{Passcode: "abc", WaitingRoom: true},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestLessonRepository_CreateLesson(t *testing.T) {
	exec := &captureExec{affected: 1}
	repo := NewLessonRepository(exec)

	lsn := testLesson()
	got, err := repo.CreateLesson(context.Background(), lsn)
	require.NoError(t, err)
	assert.Equal(t, lsn, got)

	assert.True(t, strings.HasPrefix(exec.query, "INSERT INTO lessons"))
	assert.Contains(t, exec.query, "$26")
	assert.NotContains(t, exec.query, ":id")
	require.Len(t, exec.args, 26)
	assert.Equal(t, lsn.ID, exec.args[0])
}

func TestLessonRepository_AttachMeeting(t *testing.T) {
	tests := []struct {
		name     string
		res      lesson.MeetingResource
		affected int64
		wantCol  string
		wantErr  error
	}{
		{
			name:     "zoom",
			res:      lesson.MeetingResource{Provider: lesson.ProviderZoom, ExternalID: "857", Name: "Intro", JoinURL: "https://zoom.test/j/857"},
			affected: 1,
			wantCol:  "zoom_meeting_id",
		},
		{
			name:     "daily",
			res:      lesson.MeetingResource{Provider: lesson.ProviderDaily, ExternalID: "r-1", Name: "intro-1", JoinURL: "https://x.daily.co/intro-1"},
			affected: 1,
			wantCol:  "daily_room_name",
		},
		{
			name:    "unknown lesson",
			res:     lesson.MeetingResource{Provider: lesson.ProviderDaily, Name: "intro-1"},
			wantErr: lesson.ErrLessonNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &captureExec{affected: tt.affected}
			err := NewLessonRepository(nil).AttachMeeting(context.Background(), "tenant", "lesson", tt.res, exec)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, exec.query, tt.wantCol)
			assert.Equal(t, tt.res.ExternalID, exec.args[0])
			assert.Equal(t, "lesson", exec.args[5])
		})
	}
}

func TestLessonRow(t *testing.T) {
	lsn := testLesson()
	lsn.BatchID = "b-1"
	lsn.SetMeeting(lesson.MeetingResource{Provider: lesson.ProviderDaily, ExternalID: "r-1", Name: "intro-1", JoinURL: "https://x.daily.co/intro-1"})

	row := toLessonRow(lsn)
	assert.True(t, row.BatchID.Valid)
	assert.False(t, row.ZoomMeetingID.Valid)
	assert.Equal(t, "intro-1", row.DailyRoomName.String)

	back := row.toLesson()
	assert.Nil(t, back.ZoomMeeting)
	require.NotNil(t, back.DailyRoom)
	assert.Equal(t, *lsn.DailyRoom, *back.DailyRoom)
	assert.Equal(t, lsn.Zoom, back.Zoom)
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "default", want: "display_order ASC, starts_at ASC"},
		{name: "single", ordering: []core.DBOrdering{{Field: "starts_at", Ascending: false}}, want: "starts_at DESC, id ASC"},
		{
			name:     "unknown fields are dropped",
			ordering: []core.DBOrdering{{Field: "title; DROP TABLE lessons", Ascending: true}, {Field: "title", Ascending: true}},
			want:     "title ASC, id ASC",
		},
		{name: "only unknown", ordering: []core.DBOrdering{{Field: "password"}}, want: "display_order ASC, starts_at ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering))
		})
	}
}

func TestBatchRepository_CreateBatch(t *testing.T) {
	b := lesson.Batch{
		ID:             "b-1",
		TenantID:       "t-1",
		CourseID:       "c-1",
		SeriesName:     "Intro",
		IdempotencyKey: "term-1",
		Requested:      3,
		CreatedAt:      time.Now(),
	}

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "created"},
		{name: "duplicate key", err: &pq.Error{Code: "23505"}, wantErr: lesson.ErrDuplicateBatch},
		{name: "unknown course", err: &pq.Error{Code: "23503"}, wantErr: lesson.ErrCourseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &captureExec{err: tt.err}
			_, err := NewBatchRepository(exec).CreateBatch(context.Background(), b)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, exec.query, "$15")
			require.Len(t, exec.args, 15)
		})
	}
}

func TestBatchRepository_FinishBatch(t *testing.T) {
	exec := &captureExec{affected: 1}
	b := lesson.Batch{ID: "b-1", TenantID: "t-1", Stats: lesson.Stats{LessonsCreated: 4, ZoomFailed: 1}, FinishedAt: time.Now()}

	require.NoError(t, NewBatchRepository(exec).FinishBatch(context.Background(), b))
	assert.True(t, strings.HasPrefix(exec.query, "UPDATE lesson_batches"))
	assert.Contains(t, exec.args, 4)
}

func TestCourseRepository_GetCourse_invalidIDs(t *testing.T) {
	repo := NewCourseRepository(&captureExec{})
	_, err := repo.GetCourse(context.Background(), "not-a-uuid", "c0a8012e-9f3b-4c3e-8d7d-5b6f1c2a9e44")
	assert.Equal(t, lesson.ErrCourseNotFound, err)
}
