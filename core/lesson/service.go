package lesson

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrDuplicateBatch   = errors.New("a batch with this idempotency key was already submitted")
	ErrNoLessonsCreated = errors.New("no lessons could be created")

	summaryTmpl = texttmpl.Must(texttmpl.New("batch_summary").Parse(
		`Hello {{.Name}},

Your recurring series "{{.SeriesName}}" for {{.CourseName}} has been processed.

{{.Message}}.
{{range .Lessons}}
- {{.Title}} ({{.StartsAt.Format "2006-01-02 15:04 MST"}}){{with .ZoomMeeting}} zoom: {{.JoinURL}}{{end}}{{with .DailyRoom}} room: {{.JoinURL}}{{end}}{{end}}
`))
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, lsn Lesson, exec ...core.DBExecutor) (Lesson, error)
		ListLessonsByID(ctx context.Context, tenantID string, ids []string, exec ...core.DBExecutor) ([]Lesson, error)
		QueryLessons(ctx context.Context, tenantID, courseID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lesson, error)
		AttachMeeting(ctx context.Context, tenantID, lessonID string, res MeetingResource, exec ...core.DBExecutor) error
	}

	CourseRepository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		// GetCourse returns ErrCourseNotFound when the course does not exist within the tenant.
		GetCourse(ctx context.Context, tenantID, courseID string, exec ...core.DBExecutor) (Course, error)
	}

	BatchRepository interface {
		// CreateBatch returns ErrDuplicateBatch if the tenant already has a live batch with the same idempotency key.
		CreateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		FinishBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) error
	}

	ProvisionRepository interface {
		CreateIntent(ctx context.Context, in ProvisionIntent, exec ...core.DBExecutor) (ProvisionIntent, error)
		UpdateIntent(ctx context.Context, in ProvisionIntent, exec ...core.DBExecutor) error
		QueryIntents(ctx context.Context, filter IntentFilter, exec ...core.DBExecutor) ([]ProvisionIntent, error)
	}

	// MeetingProvider creates meetings on a Zoom-like service.
	MeetingProvider interface {
		CreateMeeting(ctx context.Context, req MeetingRequest) (MeetingResource, error)
		// DeleteMeeting succeeds if the meeting does not exist.
		DeleteMeeting(ctx context.Context, meetingID string) error
	}

	// RoomProvider creates rooms on a Daily.co-like service.
	RoomProvider interface {
		CreateRoom(ctx context.Context, req RoomRequest) (MeetingResource, error)
		// DeleteRoom succeeds if the room does not exist.
		DeleteRoom(ctx context.Context, name string) error
	}

	Service interface {
		CreateRecurringLessons(ctx context.Context, p core.Principal, nr NewRecurringLessons) (BatchResult, error)
		QueryLessons(ctx context.Context, p core.Principal, courseID string, ordering []core.DBOrdering) ([]Lesson, error)
	}

	// ServiceDeps are the collaborators of the lesson Service. Meetings, Rooms and MailSvc are optional.
	ServiceDeps struct {
		Repo       Repository
		Courses    CourseRepository
		Batches    BatchRepository
		Provisions ProvisionRepository
		Tx         core.TxRunner
		Meetings   MeetingProvider
		Rooms      RoomProvider
		MailSvc    core.EmailService
		Logger     core.Logger
		Locale     string
		RoomExpiry time.Duration
	}

	service struct {
		ServiceDeps
		renderer *TokenRenderer
	}
)

var _ Service = (*service)(nil)

func NewService(deps ServiceDeps) Service {
	return &service{
		ServiceDeps: deps,
		renderer:    NewTokenRenderer(deps.Locale, deps.Logger),
	}
}

func (svc *service) QueryLessons(ctx context.Context, p core.Principal, courseID string, ordering []core.DBOrdering) ([]Lesson, error) {
	if _, err := svc.Courses.GetCourse(ctx, p.TenantID, courseID); err != nil {
		return nil, err
	}
	lessons, err := svc.Repo.QueryLessons(ctx, p.TenantID, courseID, ordering)
	return lessons, errors.Wrap(err, "querying lessons")
}

// batchRun carries the state of one CreateRecurringLessons call.
type batchRun struct {
	principal core.Principal
	req       NewRecurringLessons
	course    Course
	batch     Batch
	lessons   []Lesson
	seqs      []int // 1-based slot number of each created lesson
	stats     Stats
	attached  bool
}

func (run *batchRun) tokenContext(seq int, lsn Lesson) TokenContext {
	start := lsn.StartsAt
	return TokenContext{
		Sequence:   seq,
		SeriesName: run.req.SeriesName,
		CourseName: run.course.Name,
		Start:      &start,
		Timezone:   lsn.Timezone,
	}
}

// CreateRecurringLessons creates one lesson per date slot, then provisions the requested meetings and rooms.
// Partial failures are counted, never returned; only a batch without any lesson fails as a whole.
func (svc *service) CreateRecurringLessons(ctx context.Context, p core.Principal, nr NewRecurringLessons) (BatchResult, error) {
	slots, err := resolveSlots(nr)
	if err != nil {
		return BatchResult{}, core.NewValidationError(err)
	}
	if err = svc.checkProviders(nr); err != nil {
		return BatchResult{}, err
	}

	course, err := svc.Courses.GetCourse(ctx, p.TenantID, nr.CourseID)
	if err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return BatchResult{}, ErrCourseNotFound
		}
		return BatchResult{}, errors.Wrap(err, "getting course")
	}

	batch, err := svc.Batches.CreateBatch(ctx, Batch{
		ID:             uuid.New().String(),
		TenantID:       p.TenantID,
		CourseID:       course.ID,
		CreatedBy:      p.UserID,
		SeriesName:     nr.SeriesName,
		IdempotencyKey: nr.IdempotencyKey,
		Requested:      nr.requested(),
		CreatedAt:      nowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicateBatch {
			return BatchResult{}, ErrDuplicateBatch
		}
		return BatchResult{}, errors.Wrap(err, "creating batch")
	}

	run := &batchRun{principal: p, req: nr, course: course, batch: batch}

	svc.createLessons(ctx, run, slots)
	if len(run.lessons) == 0 {
		svc.finishBatch(ctx, run)
		return BatchResult{}, ErrNoLessonsCreated
	}

	if nr.Zoom.Enabled {
		// a recurring series is provisioned exactly like independent meetings
		svc.provisionMeetings(ctx, run)
	}
	if nr.Daily.Enabled {
		svc.provisionRooms(ctx, run)
	}

	if run.attached {
		svc.refetchLessons(ctx, run)
	}

	svc.finishBatch(ctx, run)
	res := BatchResult{
		Success: true,
		BatchID: run.batch.ID,
		Lessons: run.lessons,
		Message: summaryMessage(run.stats, nr.Zoom.Enabled, nr.Daily.Enabled),
		Stats:   run.stats,
	}
	svc.notify(run, res)
	return res, nil
}

func (svc *service) checkProviders(nr NewRecurringLessons) error {
	var flds []core.FieldError
	if nr.Zoom.Enabled && svc.Meetings == nil {
		flds = append(flds, core.FieldError{Field: "zoom.enabled", Error: errZoomUnavailable})
	}
	if nr.Daily.Enabled && svc.Rooms == nil {
		flds = append(flds, core.FieldError{Field: "daily.enabled", Error: errDailyUnavailable})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *service) createLessons(ctx context.Context, run *batchRun, slots []time.Time) {
	now := nowFunc().UTC()
	order := run.req.startOrder()
	titlePattern := run.req.titlePattern()

	for i, slot := range slots {
		lsn := Lesson{
			ID:              uuid.New().String(),
			TenantID:        run.principal.TenantID,
			CourseID:        run.course.ID,
			ModuleID:        run.req.ModuleID,
			BatchID:         run.batch.ID,
			Description:     run.req.Description,
			StartsAt:        slot,
			DurationMinutes: run.req.DurationMinutes,
			Timezone:        run.req.Timezone,
			DisplayOrder:    order + i,
			IsPublished:     run.req.Publish,
			Zoom:            run.req.Zoom.Options,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		lsn.Title = svc.renderer.Render(titlePattern, run.tokenContext(i+1, lsn))

		created, err := svc.Repo.CreateLesson(ctx, lsn)
		if err != nil {
			svc.Logger.Error(fmt.Sprintf("creating lesson %d/%d of batch %s: %v", i+1, len(slots), run.batch.ID, err), err, run.principal)
			continue
		}
		run.lessons = append(run.lessons, created)
		run.seqs = append(run.seqs, i+1)
	}
	run.stats.LessonsCreated = len(run.lessons)
}

func (svc *service) provisionMeetings(ctx context.Context, run *batchRun) {
	for i, lsn := range run.lessons {
		tc := run.tokenContext(run.seqs[i], lsn)
		topic := svc.renderer.Render(run.req.Zoom.TopicPattern, tc)

		intent, err := svc.recordIntent(ctx, run, lsn, ProviderZoom, topic)
		if err != nil {
			svc.Logger.Error(fmt.Sprintf("recording zoom intent for lesson %s: %v", lsn.ID, err), err, run.principal)
			run.stats.ZoomFailed++
			continue
		}

		meeting, err := svc.Meetings.CreateMeeting(ctx, MeetingRequest{
			Topic:           topic,
			Agenda:          svc.renderer.Render(run.req.Zoom.AgendaPattern, tc),
			StartsAt:        lsn.StartsAt,
			DurationMinutes: lsn.DurationMinutes,
			Timezone:        lsn.Timezone,
			Options:         lsn.Zoom,
		})
		if err != nil {
			svc.Logger.Warn(fmt.Sprintf("creating zoom meeting for lesson %s: %v", lsn.ID, err), err, run.principal)
			svc.setIntentStatus(ctx, &intent, StatusFailed, err)
			run.stats.ZoomFailed++
			continue
		}
		intent.ExternalID = meeting.ExternalID
		intent.JoinURL = meeting.JoinURL
		svc.setIntentStatus(ctx, &intent, StatusProvisioned, nil)

		if err = svc.attach(ctx, run, i, &intent); err != nil {
			// the meeting is left to the reconciler
			svc.Logger.Error(fmt.Sprintf("attaching zoom meeting %s to lesson %s: %v", meeting.ExternalID, lsn.ID, err), err, run.principal)
			svc.setIntentStatus(ctx, &intent, StatusOrphaned, err)
			run.stats.ZoomFailed++
			continue
		}
		run.stats.ZoomSuccess++
	}
}

func (svc *service) provisionRooms(ctx context.Context, run *batchRun) {
	pattern := run.req.roomNamePattern()

	for i, lsn := range run.lessons {
		name := SanitizeRoomName(svc.renderer.Render(pattern, run.tokenContext(run.seqs[i], lsn)), lsn.ID)

		intent, err := svc.recordIntent(ctx, run, lsn, ProviderDaily, name)
		if err != nil {
			svc.Logger.Error(fmt.Sprintf("recording daily intent for lesson %s: %v", lsn.ID, err), err, run.principal)
			run.stats.DailyFailed++
			continue
		}

		room, err := svc.Rooms.CreateRoom(ctx, RoomRequest{
			Name:            name,
			ExpiresAt:       lsn.EndsAt().Add(svc.RoomExpiry),
			EnableRecording: false,
		})
		if err != nil {
			svc.Logger.Warn(fmt.Sprintf("creating daily room %q for lesson %s: %v", name, lsn.ID, err), err, run.principal)
			svc.setIntentStatus(ctx, &intent, StatusFailed, err)
			run.stats.DailyFailed++
			continue
		}
		intent.ExternalID = room.ExternalID
		intent.JoinURL = room.JoinURL
		svc.setIntentStatus(ctx, &intent, StatusProvisioned, nil)

		if err = svc.attach(ctx, run, i, &intent); err != nil {
			svc.Logger.Error(fmt.Sprintf("attaching daily room %q to lesson %s: %v", name, lsn.ID, err), err, run.principal)
			svc.compensateRoom(ctx, run, &intent, err)
			run.stats.DailyFailed++
			continue
		}
		run.stats.DailySuccess++
	}
}

// compensateRoom deletes a room that could not be attached to its lesson.
func (svc *service) compensateRoom(ctx context.Context, run *batchRun, intent *ProvisionIntent, cause error) {
	if err := svc.Rooms.DeleteRoom(ctx, intent.ResourceName); err != nil {
		svc.Logger.Error(fmt.Sprintf("deleting orphaned daily room %q: %v", intent.ResourceName, err), err, run.principal)
		svc.setIntentStatus(ctx, intent, StatusOrphaned, errors.Wrap(err, cause.Error()))
		return
	}
	svc.setIntentStatus(ctx, intent, StatusCompensated, cause)
}

func (svc *service) recordIntent(ctx context.Context, run *batchRun, lsn Lesson, provider Provider, name string) (ProvisionIntent, error) {
	now := nowFunc().UTC()
	return svc.Provisions.CreateIntent(ctx, ProvisionIntent{
		ID:           uuid.New().String(),
		TenantID:     run.principal.TenantID,
		BatchID:      run.batch.ID,
		LessonID:     lsn.ID,
		Provider:     provider,
		ResourceName: name,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// setIntentStatus persists the intent's new status. Failures are only logged: the reconciler will
// pick up intents stuck in a non-terminal status.
func (svc *service) setIntentStatus(ctx context.Context, intent *ProvisionIntent, status ProvisionStatus, cause error) {
	intent.Status = status
	intent.UpdatedAt = nowFunc().UTC()
	if cause != nil {
		intent.LastError = cause.Error()
	}
	if err := svc.Provisions.UpdateIntent(ctx, *intent); err != nil {
		svc.Logger.Error(fmt.Sprintf("updating provisioning intent %s to %s: %v", intent.ID, status, err), err)
	}
}

// attach stores the resource on the lesson and marks the intent attached, atomically.
func (svc *service) attach(ctx context.Context, run *batchRun, idx int, intent *ProvisionIntent) error {
	lsn := run.lessons[idx]
	attached := *intent
	attached.Status = StatusAttached
	attached.UpdatedAt = nowFunc().UTC()

	err := svc.Tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.Repo.AttachMeeting(ctx, run.principal.TenantID, lsn.ID, intent.resource(), exec); err != nil {
			return errors.Wrap(err, "attaching meeting")
		}
		return errors.Wrap(svc.Provisions.UpdateIntent(ctx, attached, exec), "updating intent")
	})
	if err != nil {
		return err
	}
	*intent = attached
	run.lessons[idx].SetMeeting(intent.resource())
	run.attached = true
	return nil
}

func (svc *service) refetchLessons(ctx context.Context, run *batchRun) {
	ids := make([]string, 0, len(run.lessons))
	for _, lsn := range run.lessons {
		ids = append(ids, lsn.ID)
	}
	lessons, err := svc.Repo.ListLessonsByID(ctx, run.principal.TenantID, ids)
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("re-fetching lessons of batch %s: %v", run.batch.ID, err), err, run.principal)
		return
	}
	run.lessons = lessons
}

func (svc *service) finishBatch(ctx context.Context, run *batchRun) {
	run.batch.Stats = run.stats
	run.batch.Failed = run.stats.LessonsCreated == 0
	run.batch.FinishedAt = nowFunc().UTC()
	if err := svc.Batches.FinishBatch(ctx, run.batch); err != nil {
		svc.Logger.Error(fmt.Sprintf("finishing batch %s: %v", run.batch.ID, err), err, run.principal)
	}
}

// notify emails the batch summary to the principal, if their address is known.
func (svc *service) notify(run *batchRun, res BatchResult) {
	if svc.MailSvc == nil || strings.TrimSpace(run.principal.Email) == "" {
		return
	}
	name := run.principal.Name
	if name == "" {
		name = run.principal.Email
	}
	svc.MailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: run.principal.Name, Address: run.principal.Email}},
		Subject:  fmt.Sprintf("%d lessons scheduled for %s", res.Stats.LessonsCreated, run.course.Name),
		Template: summaryTmpl,
		TemplateData: struct {
			Name       string
			SeriesName string
			CourseName string
			Message    string
			Lessons    []Lesson
		}{name, run.req.SeriesName, run.course.Name, res.Message, res.Lessons},
	})
}
