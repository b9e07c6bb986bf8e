package lesson

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

const (
	defaultTitlePattern     = "{series_name} - Session {n}"
	defaultRoomNamePattern  = "{series_name} {n}"
	defaultStartOrder       = 1
	shortLessonIDSuffixSize = 8
)

// Provider identifies an external videoconferencing service.
type Provider string

const (
	ProviderZoom  Provider = "zoom"
	ProviderDaily Provider = "daily"
)

type (
	// Course is owned by a tenant; lessons are always created within one.
	Course struct {
		ID        string    `json:"id" db:"id"`
		TenantID  string    `json:"tenant_id" db:"tenant_id"`
		Name      string    `json:"name" db:"name"`
		CreatedAt time.Time `json:"created_at" db:"created_at"`
	}

	// ZoomOptions are the meeting security and recording options stored with every lesson.
	ZoomOptions struct {
		Passcode         string `json:"passcode,omitempty" validate:"max=10"`
		WaitingRoom      bool   `json:"waiting_room"`
		HostVideo        bool   `json:"host_video"`
		ParticipantVideo bool   `json:"participant_video"`
		Audio            string `json:"audio,omitempty" validate:"omitempty,oneof=both telephony voip"`
		AutoRecording    string `json:"auto_recording,omitempty" validate:"omitempty,oneof=local cloud none"`
	}

	// MeetingResource is the local representation of an externally owned meeting or room.
	MeetingResource struct {
		Provider   Provider `json:"provider"`
		ExternalID string   `json:"external_id"`
		Name       string   `json:"name,omitempty"`
		JoinURL    string   `json:"join_url"`
	}

	Lesson struct {
		ID              string           `json:"id"`
		TenantID        string           `json:"tenant_id"`
		CourseID        string           `json:"course_id"`
		ModuleID        string           `json:"module_id"`
		BatchID         string           `json:"batch_id,omitempty"`
		Title           string           `json:"title"`
		Description     string           `json:"description"`
		StartsAt        time.Time        `json:"starts_at"`
		DurationMinutes int              `json:"duration_minutes"`
		Timezone        string           `json:"timezone"`
		DisplayOrder    int              `json:"display_order"`
		IsPublished     bool             `json:"is_published"`
		Zoom            ZoomOptions      `json:"zoom"`
		ZoomMeeting     *MeetingResource `json:"zoom_meeting,omitempty"`
		DailyRoom       *MeetingResource `json:"daily_room,omitempty"`
		CreatedAt       time.Time        `json:"created_at"`
		UpdatedAt       time.Time        `json:"updated_at"`
	}
)

// SetMeeting stores res in the lesson's slot for its provider.
func (l *Lesson) SetMeeting(res MeetingResource) {
	switch res.Provider {
	case ProviderZoom:
		l.ZoomMeeting = &res
	case ProviderDaily:
		l.DailyRoom = &res
	}
}

// EndsAt returns the scheduled end of the lesson.
func (l Lesson) EndsAt() time.Time {
	return l.StartsAt.Add(time.Duration(l.DurationMinutes) * time.Minute)
}

type (
	// ZoomSettings requests one Zoom meeting per created lesson.
	ZoomSettings struct {
		Enabled bool `json:"enabled"`
		// Recurring is accepted for compatibility; recurring series are provisioned one meeting per lesson.
		Recurring     bool        `json:"recurring"`
		TopicPattern  string      `json:"topic_pattern" validate:"max=200"`
		AgendaPattern string      `json:"agenda_pattern" validate:"max=2000"`
		Options       ZoomOptions `json:"options"`
	}

	// DailySettings requests one Daily.co room per created lesson.
	DailySettings struct {
		Enabled     bool   `json:"enabled"`
		NamePattern string `json:"name_pattern" validate:"max=200"`
	}

	// NewRecurringLessons is the payload of a recurring lessons batch.
	// Either Dates or the series parameters (StartDate, StartTime, NumberOfSessions, RecurrencePattern) must be set.
	NewRecurringLessons struct {
		CourseID          string        `json:"course_id" validate:"required,uuid"`
		ModuleID          string        `json:"module_id" validate:"required,max=100"`
		SeriesName        string        `json:"series_name" validate:"required,max=200"`
		Dates             []string      `json:"dates" validate:"omitempty,max=365"`
		StartDate         string        `json:"start_date" validate:"omitempty,ymd"`
		StartTime         string        `json:"start_time" validate:"omitempty,hhmm"`
		NumberOfSessions  *int          `json:"number_of_sessions" validate:"omitempty,min=0,max=365"`
		RecurrencePattern string        `json:"recurrence_pattern" validate:"omitempty,recurrence"`
		TitlePattern      string        `json:"title_pattern" validate:"max=200"`
		Description       string        `json:"description" validate:"max=5000"`
		DurationMinutes   int           `json:"duration_minutes" validate:"required,min=1,max=1440"`
		Timezone          string        `json:"timezone" validate:"required,tz"`
		StartOrder        *int          `json:"start_order" validate:"omitempty,min=0"`
		Publish           bool          `json:"publish"`
		Zoom              ZoomSettings  `json:"zoom"`
		Daily             DailySettings `json:"daily"`
		IdempotencyKey    string        `json:"idempotency_key" validate:"max=100"`
	}
)

// Validate runs the struct validations and the rules spanning several fields.
func (nr *NewRecurringLessons) Validate(validate *validator.Validate) error {
	nr.SeriesName = core.CleanString(nr.SeriesName)
	nr.IdempotencyKey = core.CleanString(nr.IdempotencyKey)

	if err := validate.Struct(nr); err != nil {
		return err
	}

	var flds []core.FieldError
	if len(nr.Dates) == 0 {
		if nr.StartDate == "" {
			flds = append(flds, core.FieldError{Field: "start_date", Error: errRequiredWithoutDates})
		}
		if nr.StartTime == "" {
			flds = append(flds, core.FieldError{Field: "start_time", Error: errRequiredWithoutDates})
		}
		if nr.NumberOfSessions == nil {
			flds = append(flds, core.FieldError{Field: "number_of_sessions", Error: errRequiredWithoutDates})
		}
		if nr.RecurrencePattern == "" {
			flds = append(flds, core.FieldError{Field: "recurrence_pattern", Error: errRequiredWithoutDates})
		}
	}
	for i, d := range nr.Dates {
		if _, err := time.Parse(time.RFC3339, d); err != nil {
			flds = append(flds, core.FieldError{Field: fmt.Sprintf("dates[%d]", i), Error: errInvalidInstant})
		}
	}
	if nr.Zoom.Enabled && strings.TrimSpace(nr.Zoom.TopicPattern) == "" {
		flds = append(flds, core.FieldError{Field: "zoom.topic_pattern", Error: errTopicPatternRequired})
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (nr NewRecurringLessons) titlePattern() string {
	if strings.TrimSpace(nr.TitlePattern) == "" {
		return defaultTitlePattern
	}
	return nr.TitlePattern
}

func (nr NewRecurringLessons) roomNamePattern() string {
	if strings.TrimSpace(nr.Daily.NamePattern) == "" {
		return defaultRoomNamePattern
	}
	return nr.Daily.NamePattern
}

func (nr NewRecurringLessons) startOrder() int {
	if nr.StartOrder == nil {
		return defaultStartOrder
	}
	return *nr.StartOrder
}

func (nr NewRecurringLessons) requested() int {
	if len(nr.Dates) > 0 {
		return len(nr.Dates)
	}
	if nr.NumberOfSessions != nil {
		return *nr.NumberOfSessions
	}
	return 0
}

type (
	Stats struct {
		LessonsCreated int `json:"lessons_created"`
		ZoomSuccess    int `json:"zoom_success"`
		ZoomFailed     int `json:"zoom_failed"`
		DailySuccess   int `json:"daily_success"`
		DailyFailed    int `json:"daily_failed"`
	}

	// BatchResult is the outcome of a recurring lessons batch.
	BatchResult struct {
		Success bool     `json:"success"`
		BatchID string   `json:"batch_id"`
		Lessons []Lesson `json:"lessons"`
		Message string   `json:"message"`
		Stats   Stats    `json:"stats"`
	}

	// Batch records a submitted recurring lessons request and its outcome.
	Batch struct {
		ID             string
		TenantID       string
		CourseID       string
		CreatedBy      string
		SeriesName     string
		IdempotencyKey string
		Requested      int
		Stats          Stats
		Failed         bool
		CreatedAt      time.Time
		FinishedAt     time.Time
	}
)

func summaryMessage(stats Stats, zoom, daily bool) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "Created %d lessons", stats.LessonsCreated)
	if zoom {
		_, _ = fmt.Fprintf(&b, ", %d Zoom meetings (%d failed)", stats.ZoomSuccess, stats.ZoomFailed)
	}
	if daily {
		_, _ = fmt.Fprintf(&b, ", %d Daily rooms (%d failed)", stats.DailySuccess, stats.DailyFailed)
	}
	return b.String()
}

// ProvisionStatus is the state of a provisioning intent.
type ProvisionStatus string

const (
	StatusPending     ProvisionStatus = "pending"
	StatusProvisioned ProvisionStatus = "provisioned"
	StatusAttached    ProvisionStatus = "attached"
	StatusFailed      ProvisionStatus = "failed"
	StatusOrphaned    ProvisionStatus = "orphaned"
	StatusCompensated ProvisionStatus = "compensated"
	StatusAbandoned   ProvisionStatus = "abandoned"
)

type (
	// ProvisionIntent is recorded before any external resource is requested,
	// so that resources left behind by partial failures can be reconciled later.
	ProvisionIntent struct {
		ID           string
		TenantID     string
		BatchID      string
		LessonID     string
		Provider     Provider
		ResourceName string
		ExternalID   string
		JoinURL      string
		Status       ProvisionStatus
		LastError    string
		Attempts     int
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// IntentFilter selects intents in any of Statuses last updated before UpdatedBefore.
	IntentFilter struct {
		Statuses      []ProvisionStatus
		UpdatedBefore time.Time
		Limit         int
	}
)

func (in ProvisionIntent) resource() MeetingResource {
	return MeetingResource{
		Provider:   in.Provider,
		ExternalID: in.ExternalID,
		Name:       in.ResourceName,
		JoinURL:    in.JoinURL,
	}
}

type (
	// MeetingRequest is what a meeting provider needs to schedule one lesson.
	MeetingRequest struct {
		Topic           string
		Agenda          string
		StartsAt        time.Time
		DurationMinutes int
		Timezone        string
		Options         ZoomOptions
	}

	// RoomRequest is what a room provider needs to open one lesson's room.
	RoomRequest struct {
		Name            string
		ExpiresAt       time.Time
		EnableRecording bool
	}
)
