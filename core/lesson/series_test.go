package lesson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDateSeries(t *testing.T) {
	utc := func(y int, m time.Month, d, h int) time.Time { return time.Date(y, m, d, h, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		params  SeriesParams
		want    []time.Time
		wantErr bool
	}{
		{
			name:   "weekly in Jerusalem",
			params: SeriesParams{StartDate: "2025-03-03", StartTime: "19:00", NumberOfSessions: 3, Pattern: Weekly, Timezone: "Asia/Jerusalem"},
			want:   []time.Time{utc(2025, 3, 3, 17), utc(2025, 3, 10, 17), utc(2025, 3, 17, 17)},
		},
		{
			name:   "daily across US DST start",
			params: SeriesParams{StartDate: "2025-03-08", StartTime: "10:00", NumberOfSessions: 3, Pattern: Daily, Timezone: "America/New_York"},
			want:   []time.Time{utc(2025, 3, 8, 15), utc(2025, 3, 9, 14), utc(2025, 3, 10, 14)},
		},
		{
			name:   "weekly across month & year end",
			params: SeriesParams{StartDate: "2024-12-25", StartTime: "08:00", NumberOfSessions: 2, Pattern: Weekly, Timezone: "UTC"},
			want:   []time.Time{utc(2024, 12, 25, 8), utc(2025, 1, 1, 8)},
		},
		{
			name:   "no sessions",
			params: SeriesParams{StartDate: "2025-03-03", StartTime: "19:00", NumberOfSessions: 0, Pattern: Weekly, Timezone: "UTC"},
			want:   []time.Time{},
		},
		{name: "negative sessions", params: SeriesParams{StartDate: "2025-03-03", StartTime: "19:00", NumberOfSessions: -1, Pattern: Daily, Timezone: "UTC"}, wantErr: true},
		{name: "unknown pattern", params: SeriesParams{StartDate: "2025-03-03", StartTime: "19:00", NumberOfSessions: 1, Pattern: "monthly", Timezone: "UTC"}, wantErr: true},
		{name: "unknown timezone", params: SeriesParams{StartDate: "2025-03-03", StartTime: "19:00", NumberOfSessions: 1, Pattern: Daily, Timezone: "Nowhere/Land"}, wantErr: true},
		{name: "bad date", params: SeriesParams{StartDate: "03/03/2025", StartTime: "19:00", NumberOfSessions: 1, Pattern: Daily, Timezone: "UTC"}, wantErr: true},
		{name: "bad time", params: SeriesParams{StartDate: "2025-03-03", StartTime: "7pm", NumberOfSessions: 1, Pattern: Daily, Timezone: "UTC"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateDateSeries(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Equal(got[i]), "slot %d = %v; want %v", i, got[i], tt.want[i])
			}
		})
	}
}

func TestCalculateDateSeries_wallClock(t *testing.T) {
	for _, tt := range []struct {
		pattern RecurrencePattern
		days    int
	}{{Daily, 1}, {Weekly, 7}} {
		t.Run(string(tt.pattern), func(t *testing.T) {
			loc, err := time.LoadLocation("Europe/Berlin")
			require.NoError(t, err)

			// spans the last Sunday of March & October
			got, err := CalculateDateSeries(SeriesParams{
				StartDate: "2025-03-01", StartTime: "18:30", NumberOfSessions: 40, Pattern: tt.pattern, Timezone: "Europe/Berlin",
			})
			require.NoError(t, err)
			require.Len(t, got, 40)

			for i := 1; i < len(got); i++ {
				prev, curr := got[i-1].In(loc), got[i].In(loc)
				assert.Equal(t, 18, curr.Hour())
				assert.Equal(t, 30, curr.Minute())
				assert.Equal(t, prev.AddDate(0, 0, tt.days).Format("2006-01-02"), curr.Format("2006-01-02"))
			}
		})
	}
}

func TestParseDates(t *testing.T) {
	got, err := ParseDates([]string{"2025-03-03T19:00:00+02:00", "2025-03-10T17:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
	}, got)

	_, err = ParseDates([]string{"2025-03-03"})
	assert.Error(t, err)
}
