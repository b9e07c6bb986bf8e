package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ lesson.CourseRepository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs lesson.Course, exec ...core.DBExecutor) (lesson.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	crs.CreatedAt = crs.CreatedAt.UTC()

	q, args, err := sqlx.Named(
		`INSERT INTO courses (id, tenant_id, name, created_at) VALUES (:id, :tenant_id, :name, :created_at)`, crs)
	if err != nil {
		return lesson.Course{}, errors.Wrap(err, "binding course")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, rebind(q), args...); err != nil {
		return lesson.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, tenantID, courseID string, exec ...core.DBExecutor) (lesson.Course, error) {
	if !isUUID(tenantID) || !isUUID(courseID) {
		return lesson.Course{}, lesson.ErrCourseNotFound
	}

	rows, err := getExec(repo.exec, exec).QueryContext(ctx,
		`SELECT id, tenant_id, name, created_at FROM courses WHERE tenant_id = $1 AND id = $2`, tenantID, courseID)
	if err != nil {
		return lesson.Course{}, errors.Wrap(err, "querying course")
	}
	defer func() { _ = rows.Close() }()

	var courses []lesson.Course
	if err = sqlx.StructScan(rows, &courses); err != nil {
		return lesson.Course{}, errors.Wrap(err, "scanning course")
	}
	if len(courses) == 0 {
		return lesson.Course{}, lesson.ErrCourseNotFound
	}
	return courses[0], nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
