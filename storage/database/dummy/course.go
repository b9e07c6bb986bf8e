package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type courseRepository struct {
	db *courseTable
}

var _ lesson.CourseRepository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) lesson.CourseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs lesson.Course, _ ...core.DBExecutor) (lesson.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, tenantID, courseID string, _ ...core.DBExecutor) (lesson.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[courseID]; ok && crs.TenantID == tenantID {
		return *crs, nil
	}
	return lesson.Course{}, lesson.ErrCourseNotFound
}
