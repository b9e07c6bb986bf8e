package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
	"github.com/trezcool/ratiba/storage/database"
)

type batchRow struct {
	ID             string      `db:"id"`
	TenantID       string      `db:"tenant_id"`
	CourseID       string      `db:"course_id"`
	CreatedBy      string      `db:"created_by"`
	SeriesName     string      `db:"series_name"`
	IdempotencyKey null.String `db:"idempotency_key"`
	Requested      int         `db:"requested"`
	LessonsCreated int         `db:"lessons_created"`
	ZoomSuccess    int         `db:"zoom_success"`
	ZoomFailed     int         `db:"zoom_failed"`
	DailySuccess   int         `db:"daily_success"`
	DailyFailed    int         `db:"daily_failed"`
	Failed         bool        `db:"failed"`
	CreatedAt      time.Time   `db:"created_at"`
	FinishedAt     null.Time   `db:"finished_at"`
}

func toBatchRow(b lesson.Batch) batchRow {
	return batchRow{
		ID:             b.ID,
		TenantID:       b.TenantID,
		CourseID:       b.CourseID,
		CreatedBy:      b.CreatedBy,
		SeriesName:     b.SeriesName,
		IdempotencyKey: null.NewString(b.IdempotencyKey, b.IdempotencyKey != ""),
		Requested:      b.Requested,
		LessonsCreated: b.Stats.LessonsCreated,
		ZoomSuccess:    b.Stats.ZoomSuccess,
		ZoomFailed:     b.Stats.ZoomFailed,
		DailySuccess:   b.Stats.DailySuccess,
		DailyFailed:    b.Stats.DailyFailed,
		Failed:         b.Failed,
		CreatedAt:      b.CreatedAt.UTC(),
		FinishedAt:     null.NewTime(b.FinishedAt.UTC(), !b.FinishedAt.IsZero()),
	}
}

type batchRepository struct {
	exec core.DBExecutor
}

var _ lesson.BatchRepository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(exec core.DBExecutor) *batchRepository {
	return &batchRepository{exec: exec}
}

func (repo batchRepository) CreateBatch(ctx context.Context, b lesson.Batch, exec ...core.DBExecutor) (lesson.Batch, error) {
	q, args, err := sqlx.Named(`INSERT INTO lesson_batches (
			id, tenant_id, course_id, created_by, series_name, idempotency_key, requested, lessons_created,
			zoom_success, zoom_failed, daily_success, daily_failed, failed, created_at, finished_at
		) VALUES (
			:id, :tenant_id, :course_id, :created_by, :series_name, :idempotency_key, :requested, :lessons_created,
			:zoom_success, :zoom_failed, :daily_success, :daily_failed, :failed, :created_at, :finished_at
		)`, toBatchRow(b))
	if err != nil {
		return lesson.Batch{}, errors.Wrap(err, "binding batch")
	}

	if _, err = getExec(repo.exec, exec).ExecContext(ctx, rebind(q), args...); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return lesson.Batch{}, lesson.ErrDuplicateBatch
		case database.IsForeignKeyViolation(err):
			return lesson.Batch{}, lesson.ErrCourseNotFound
		}
		return lesson.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return b, nil
}

func (repo batchRepository) FinishBatch(ctx context.Context, b lesson.Batch, exec ...core.DBExecutor) error {
	q, args, err := sqlx.Named(`UPDATE lesson_batches SET
			lessons_created = :lessons_created, zoom_success = :zoom_success, zoom_failed = :zoom_failed,
			daily_success = :daily_success, daily_failed = :daily_failed, failed = :failed, finished_at = :finished_at
		WHERE tenant_id = :tenant_id AND id = :id`, toBatchRow(b))
	if err != nil {
		return errors.Wrap(err, "binding batch")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, rebind(q), args...); err != nil {
		return errors.Wrap(err, "finishing batch")
	}
	return nil
}
