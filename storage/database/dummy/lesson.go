package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type lessonRepository struct {
	db *lessonTable
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) filter(keep func(lesson.Lesson) bool) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0)
	for _, lsn := range repo.db.table {
		if keep(*lsn) {
			lessons = append(lessons, *lsn)
		}
	}
	return lessons
}

func (repo *lessonRepository) CreateLesson(_ context.Context, lsn lesson.Lesson, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) ListLessonsByID(_ context.Context, tenantID string, ids []string, _ ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	lessons := repo.filter(func(l lesson.Lesson) bool { return l.TenantID == tenantID && wanted[l.ID] })
	sortLessons(lessons, nil)
	return lessons, nil
}

func (repo *lessonRepository) QueryLessons(_ context.Context, tenantID, courseID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := repo.filter(func(l lesson.Lesson) bool { return l.TenantID == tenantID && l.CourseID == courseID })
	sortLessons(lessons, ordering)
	return lessons, nil
}

func (repo *lessonRepository) AttachMeeting(_ context.Context, tenantID, lessonID string, res lesson.MeetingResource, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	lsn, ok := repo.db.table[lessonID]
	if !ok || lsn.TenantID != tenantID {
		return lesson.ErrLessonNotFound
	}
	lsn.SetMeeting(res)
	return nil
}

// compare returns -1, 0 or 1 comparing a and b on field; unknown fields compare equal.
func compare(a, b lesson.Lesson, field string) int {
	switch field {
	case "starts_at":
		return order(a.StartsAt.Before(b.StartsAt), b.StartsAt.Before(a.StartsAt))
	case "created_at":
		return order(a.CreatedAt.Before(b.CreatedAt), b.CreatedAt.Before(a.CreatedAt))
	case "display_order":
		return order(a.DisplayOrder < b.DisplayOrder, b.DisplayOrder < a.DisplayOrder)
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return 0
}

func order(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func sortLessons(lessons []lesson.Lesson, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "display_order", Ascending: true}, {Field: "starts_at", Ascending: true}}
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(lessons[i], lessons[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return lessons[i].ID < lessons[j].ID
	})
}
