package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

const lessonColumns = `id, tenant_id, course_id, module_id, batch_id, title, description, starts_at, duration_minutes,
	timezone, display_order, is_published, zoom_passcode, zoom_waiting_room, zoom_host_video, zoom_participant_video,
	zoom_audio, zoom_auto_recording, zoom_meeting_id, zoom_topic, zoom_join_url, daily_room_id, daily_room_name,
	daily_room_url, created_at, updated_at`

// orderable maps API ordering fields to lesson columns.
var orderable = map[string]string{
	"starts_at":     "starts_at",
	"display_order": "display_order",
	"title":         "title",
	"created_at":    "created_at",
}

type lessonRow struct {
	ID                   string      `db:"id"`
	TenantID             string      `db:"tenant_id"`
	CourseID             string      `db:"course_id"`
	ModuleID             string      `db:"module_id"`
	BatchID              null.String `db:"batch_id"`
	Title                string      `db:"title"`
	Description          string      `db:"description"`
	StartsAt             time.Time   `db:"starts_at"`
	DurationMinutes      int         `db:"duration_minutes"`
	Timezone             string      `db:"timezone"`
	DisplayOrder         int         `db:"display_order"`
	IsPublished          bool        `db:"is_published"`
	ZoomPasscode         string      `db:"zoom_passcode"`
	ZoomWaitingRoom      bool        `db:"zoom_waiting_room"`
	ZoomHostVideo        bool        `db:"zoom_host_video"`
	ZoomParticipantVideo bool        `db:"zoom_participant_video"`
	ZoomAudio            string      `db:"zoom_audio"`
	ZoomAutoRecording    string      `db:"zoom_auto_recording"`
	ZoomMeetingID        null.String `db:"zoom_meeting_id"`
	ZoomTopic            null.String `db:"zoom_topic"`
	ZoomJoinURL          null.String `db:"zoom_join_url"`
	DailyRoomID          null.String `db:"daily_room_id"`
	DailyRoomName        null.String `db:"daily_room_name"`
	DailyRoomURL         null.String `db:"daily_room_url"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func toLessonRow(lsn lesson.Lesson) lessonRow {
	row := lessonRow{
		ID:                   lsn.ID,
		TenantID:             lsn.TenantID,
		CourseID:             lsn.CourseID,
		ModuleID:             lsn.ModuleID,
		BatchID:              null.NewString(lsn.BatchID, lsn.BatchID != ""),
		Title:                lsn.Title,
		Description:          lsn.Description,
		StartsAt:             lsn.StartsAt.UTC(),
		DurationMinutes:      lsn.DurationMinutes,
		Timezone:             lsn.Timezone,
		DisplayOrder:         lsn.DisplayOrder,
		IsPublished:          lsn.IsPublished,
		ZoomPasscode:         lsn.Zoom.Passcode,
		ZoomWaitingRoom:      lsn.Zoom.WaitingRoom,
		ZoomHostVideo:        lsn.Zoom.HostVideo,
		ZoomParticipantVideo: lsn.Zoom.ParticipantVideo,
		ZoomAudio:            lsn.Zoom.Audio,
		ZoomAutoRecording:    lsn.Zoom.AutoRecording,
		CreatedAt:            lsn.CreatedAt.UTC(),
		UpdatedAt:            lsn.UpdatedAt.UTC(),
	}
	if m := lsn.ZoomMeeting; m != nil {
		row.ZoomMeetingID = null.StringFrom(m.ExternalID)
		row.ZoomTopic = null.StringFrom(m.Name)
		row.ZoomJoinURL = null.StringFrom(m.JoinURL)
	}
	if r := lsn.DailyRoom; r != nil {
		row.DailyRoomID = null.StringFrom(r.ExternalID)
		row.DailyRoomName = null.StringFrom(r.Name)
		row.DailyRoomURL = null.StringFrom(r.JoinURL)
	}
	return row
}

func (row lessonRow) toLesson() lesson.Lesson {
	lsn := lesson.Lesson{
		ID:              row.ID,
		TenantID:        row.TenantID,
		CourseID:        row.CourseID,
		ModuleID:        row.ModuleID,
		BatchID:         row.BatchID.String,
		Title:           row.Title,
		Description:     row.Description,
		StartsAt:        row.StartsAt.UTC(),
		DurationMinutes: row.DurationMinutes,
		Timezone:        row.Timezone,
		DisplayOrder:    row.DisplayOrder,
		IsPublished:     row.IsPublished,
		Zoom: lesson.ZoomOptions{
			Passcode:         row.ZoomPasscode,
			WaitingRoom:      row.ZoomWaitingRoom,
			HostVideo:        row.ZoomHostVideo,
			ParticipantVideo: row.ZoomParticipantVideo,
			Audio:            row.ZoomAudio,
			AutoRecording:    row.ZoomAutoRecording,
		},
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.ZoomMeetingID.Valid {
		lsn.SetMeeting(lesson.MeetingResource{
			Provider:   lesson.ProviderZoom,
			ExternalID: row.ZoomMeetingID.String,
			Name:       row.ZoomTopic.String,
			JoinURL:    row.ZoomJoinURL.String,
		})
	}
	if row.DailyRoomID.Valid || row.DailyRoomName.Valid {
		lsn.SetMeeting(lesson.MeetingResource{
			Provider:   lesson.ProviderDaily,
			ExternalID: row.DailyRoomID.String,
			Name:       row.DailyRoomName.String,
			JoinURL:    row.DailyRoomURL.String,
		})
	}
	return lsn
}

type lessonRepository struct {
	exec core.DBExecutor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{exec: exec}
}

func (repo lessonRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	return getExec(repo.exec, svcExec)
}

func (repo lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	q, args, err := sqlx.Named(`INSERT INTO lessons (`+lessonColumns+`) VALUES (
		:id, :tenant_id, :course_id, :module_id, :batch_id, :title, :description, :starts_at, :duration_minutes,
		:timezone, :display_order, :is_published, :zoom_passcode, :zoom_waiting_room, :zoom_host_video,
		:zoom_participant_video, :zoom_audio, :zoom_auto_recording, :zoom_meeting_id, :zoom_topic, :zoom_join_url,
		:daily_room_id, :daily_room_name, :daily_room_url, :created_at, :updated_at)`, toLessonRow(lsn))
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "binding lesson")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, rebind(q), args...); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo lessonRepository) ListLessonsByID(ctx context.Context, tenantID string, ids []string, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	if len(ids) == 0 {
		return []lesson.Lesson{}, nil
	}
	q, args, err := sqlx.In(
		`SELECT `+lessonColumns+` FROM lessons WHERE tenant_id = ? AND id IN (?) ORDER BY display_order, starts_at`,
		tenantID, ids,
	)
	if err != nil {
		return nil, errors.Wrap(err, "binding lesson ids")
	}
	return repo.query(ctx, repo.getExec(exec), rebind(q), args...)
}

func (repo lessonRepository) QueryLessons(ctx context.Context, tenantID, courseID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE tenant_id = $1 AND course_id = $2 ORDER BY ` + orderBy(ordering)
	return repo.query(ctx, repo.getExec(exec), q, tenantID, courseID)
}

func (repo lessonRepository) AttachMeeting(ctx context.Context, tenantID, lessonID string, res lesson.MeetingResource, exec ...core.DBExecutor) error {
	var q string
	switch res.Provider {
	case lesson.ProviderZoom:
		q = `UPDATE lessons SET zoom_meeting_id = $1, zoom_topic = $2, zoom_join_url = $3, updated_at = $4
			WHERE tenant_id = $5 AND id = $6`
	case lesson.ProviderDaily:
		q = `UPDATE lessons SET daily_room_id = $1, daily_room_name = $2, daily_room_url = $3, updated_at = $4
			WHERE tenant_id = $5 AND id = $6`
	default:
		return errors.Errorf("unknown provider %q", res.Provider)
	}

	result, err := repo.getExec(exec).ExecContext(ctx, q,
		res.ExternalID, res.Name, res.JoinURL, time.Now().UTC(), tenantID, lessonID)
	if err != nil {
		return errors.Wrap(err, "attaching meeting")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "attaching meeting")
	}
	if n == 0 {
		return lesson.ErrLessonNotFound
	}
	return nil
}

func (repo lessonRepository) query(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]lesson.Lesson, error) {
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	defer func() { _ = rows.Close() }()

	var dest []lessonRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(dest))
	for _, row := range dest {
		lessons = append(lessons, row.toLesson())
	}
	return lessons, nil
}

// orderBy renders a safe ORDER BY clause, ignoring unknown fields.
func orderBy(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := orderable[ord.Field]
		if !ok {
			continue
		}
		ord.Field = col
		clauses = append(clauses, ord.String())
	}
	if len(clauses) == 0 {
		return "display_order ASC, starts_at ASC"
	}
	return strings.Join(append(clauses, "id ASC"), ", ")
}

func getExec(exec core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return exec
}

func rebind(q string) string {
	return sqlx.Rebind(sqlx.DOLLAR, q)
}
