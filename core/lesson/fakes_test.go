package lesson

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

type memRepo struct {
	mu        sync.Mutex
	lessons   map[string]Lesson
	failOn    func(Lesson) error
	attachErr func(MeetingResource) error
	listErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{lessons: make(map[string]Lesson)}
}

func (repo *memRepo) CreateLesson(_ context.Context, lsn Lesson, _ ...core.DBExecutor) (Lesson, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failOn != nil {
		if err := repo.failOn(lsn); err != nil {
			return Lesson{}, err
		}
	}
	repo.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *memRepo) sorted(keep func(Lesson) bool) []Lesson {
	lessons := make([]Lesson, 0, len(repo.lessons))
	for _, lsn := range repo.lessons {
		if keep(lsn) {
			lessons = append(lessons, lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].DisplayOrder < lessons[j].DisplayOrder })
	return lessons
}

func (repo *memRepo) ListLessonsByID(_ context.Context, tenantID string, ids []string, _ ...core.DBExecutor) ([]Lesson, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.listErr != nil {
		return nil, repo.listErr
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return repo.sorted(func(l Lesson) bool { return l.TenantID == tenantID && wanted[l.ID] }), nil
}

func (repo *memRepo) QueryLessons(_ context.Context, tenantID, courseID string, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Lesson, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.sorted(func(l Lesson) bool { return l.TenantID == tenantID && l.CourseID == courseID }), nil
}

func (repo *memRepo) AttachMeeting(_ context.Context, tenantID, lessonID string, res MeetingResource, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.attachErr != nil {
		if err := repo.attachErr(res); err != nil {
			return err
		}
	}
	lsn, ok := repo.lessons[lessonID]
	if !ok || lsn.TenantID != tenantID {
		return ErrLessonNotFound
	}
	lsn.SetMeeting(res)
	repo.lessons[lessonID] = lsn
	return nil
}

type memCourses struct {
	courses map[string]Course
}

func (repo *memCourses) CreateCourse(_ context.Context, crs Course, _ ...core.DBExecutor) (Course, error) {
	repo.courses[crs.ID] = crs
	return crs, nil
}

func (repo *memCourses) GetCourse(_ context.Context, tenantID, courseID string, _ ...core.DBExecutor) (Course, error) {
	crs, ok := repo.courses[courseID]
	if !ok || crs.TenantID != tenantID {
		return Course{}, ErrCourseNotFound
	}
	return crs, nil
}

type memBatches struct {
	mu      sync.Mutex
	batches map[string]Batch
}

func (repo *memBatches) CreateBatch(_ context.Context, b Batch, _ ...core.DBExecutor) (Batch, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if b.IdempotencyKey != "" {
		for _, other := range repo.batches {
			if other.TenantID == b.TenantID && other.IdempotencyKey == b.IdempotencyKey && !other.Failed {
				return Batch{}, ErrDuplicateBatch
			}
		}
	}
	repo.batches[b.ID] = b
	return b, nil
}

func (repo *memBatches) FinishBatch(_ context.Context, b Batch, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.batches[b.ID] = b
	return nil
}

type memProvisions struct {
	mu      sync.Mutex
	intents map[string]ProvisionIntent
}

func newMemProvisions() *memProvisions {
	return &memProvisions{intents: make(map[string]ProvisionIntent)}
}

func (repo *memProvisions) CreateIntent(_ context.Context, in ProvisionIntent, _ ...core.DBExecutor) (ProvisionIntent, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.intents[in.ID] = in
	return in, nil
}

func (repo *memProvisions) UpdateIntent(_ context.Context, in ProvisionIntent, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.intents[in.ID]; !ok {
		return errors.New("intent not found")
	}
	repo.intents[in.ID] = in
	return nil
}

func (repo *memProvisions) QueryIntents(_ context.Context, filter IntentFilter, _ ...core.DBExecutor) ([]ProvisionIntent, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var intents []ProvisionIntent
	for _, in := range repo.intents {
		if !filter.UpdatedBefore.IsZero() && !in.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		for _, st := range filter.Statuses {
			if in.Status == st {
				intents = append(intents, in)
				break
			}
		}
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].CreatedAt.Before(intents[j].CreatedAt) })
	return intents, nil
}

func (repo *memProvisions) byStatus(provider Provider) map[ProvisionStatus]int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	counts := make(map[ProvisionStatus]int)
	for _, in := range repo.intents {
		if in.Provider == provider {
			counts[in.Status]++
		}
	}
	return counts
}

type noTx struct{}

func (noTx) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

type fakeMeetings struct {
	mu        sync.Mutex
	created   []MeetingRequest
	deleted   []string
	failOn    func(MeetingRequest) error
	deleteErr error
}

func (f *fakeMeetings) CreateMeeting(_ context.Context, req MeetingRequest) (MeetingResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(req); err != nil {
			return MeetingResource{}, err
		}
	}
	f.created = append(f.created, req)
	id := req.StartsAt.Format("20060102")
	return MeetingResource{Provider: ProviderZoom, ExternalID: id, JoinURL: "https://zoom.test/j/" + id}, nil
}

func (f *fakeMeetings) DeleteMeeting(_ context.Context, meetingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, meetingID)
	return nil
}

type fakeRooms struct {
	mu        sync.Mutex
	created   []RoomRequest
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeRooms) CreateRoom(_ context.Context, req RoomRequest) (MeetingResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return MeetingResource{}, f.createErr
	}
	f.created = append(f.created, req)
	return MeetingResource{Provider: ProviderDaily, ExternalID: "room-" + req.Name, Name: req.Name, JoinURL: "https://ratiba.daily.test/" + req.Name}, nil
}

func (f *fakeRooms) DeleteRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type mailSpy struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailSpy) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		_ = msg.Render()
		m.sent = append(m.sent, msg)
	}
}
