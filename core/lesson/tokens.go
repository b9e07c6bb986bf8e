package lesson

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/he"
	"github.com/go-playground/locales/sw"

	"github.com/trezcool/ratiba/core"
)

// Tokens
const (
	TokenSequence   = "{n}"
	TokenSeriesName = "{series_name}"
	TokenCourseName = "{course_name}"
	TokenDate       = "{date}"       // 2025-03-03
	TokenDateShort  = "{date_short}" // 03/03
	TokenDateLong   = "{date_long}"  // March 3, 2025 (localized)
	TokenDay2       = "{dd}"
	TokenMonth2     = "{mm}"
	TokenYear       = "{year}"
	TokenMonth      = "{month}" // March (localized)
	TokenWeekday    = "{day}"   // Monday (localized)
	TokenTime       = "{time}"  // 19:00
	TokenTime12h    = "{time_12h}"
)

var supportedLocales = map[string]func() locales.Translator{
	"en": en.New,
	"fr": fr.New,
	"he": he.New,
	"sw": sw.New,
}

// TokenContext is what a pattern is rendered against.
type TokenContext struct {
	Sequence   int // 1-based
	SeriesName string
	CourseName string
	Start      *time.Time // date & time tokens are left as-is when nil
	Timezone   string
}

// TokenRenderer substitutes naming tokens in lesson titles, meeting topics and room names.
type TokenRenderer struct {
	locale     locales.Translator
	localeName string
	logger     core.Logger
}

// NewTokenRenderer returns a renderer for the given locale.
// An unsupported locale is logged; localized tokens are then never expanded.
func NewTokenRenderer(locale string, logger core.Logger) *TokenRenderer {
	r := &TokenRenderer{localeName: locale, logger: logger}
	if newLocale, ok := supportedLocales[strings.ToLower(locale)]; ok {
		r.locale = newLocale()
	} else {
		logger.Warn(fmt.Sprintf("token renderer: unsupported locale %q", locale))
	}
	return r
}

// Render returns pattern with every recognized token replaced.
// Substitution is single-pass: values are never re-scanned for tokens.
func (r *TokenRenderer) Render(pattern string, tc TokenContext) string {
	if !strings.Contains(pattern, "{") {
		return pattern
	}

	pairs := []string{
		TokenSequence, strconv.Itoa(tc.Sequence),
		TokenSeriesName, tc.SeriesName,
		TokenCourseName, tc.CourseName,
	}

	if tc.Start != nil {
		if loc, err := time.LoadLocation(tc.Timezone); err != nil {
			// date and time tokens are left unexpanded
			r.logger.Warn(fmt.Sprintf("token renderer: loading timezone %q: %v", tc.Timezone, err))
		} else {
			pairs = append(pairs, dateTimePairs(tc.Start.In(loc))...)
			pairs = append(pairs, r.localizedPairs(tc.Start.In(loc))...)
		}
	}

	return strings.NewReplacer(pairs...).Replace(pattern)
}

func dateTimePairs(t time.Time) []string {
	return []string{
		TokenDate, t.Format("2006-01-02"),
		TokenDateShort, t.Format("01/02"),
		TokenDay2, t.Format("02"),
		TokenMonth2, t.Format("01"),
		TokenYear, fmt.Sprintf("%04d", t.Year()),
		TokenTime, t.Format("15:04"),
		TokenTime12h, t.Format("3:04 PM"),
	}
}

// localizedPairs formats the localized tokens. A failing translator is logged and yields no pairs.
func (r *TokenRenderer) localizedPairs(t time.Time) (pairs []string) {
	if r.locale == nil {
		r.logger.Warn(fmt.Sprintf("token renderer: no translator for locale %q", r.localeName))
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("token renderer: formatting localized date: %v", rec))
			pairs = nil
		}
	}()

	return []string{
		TokenDateLong, r.locale.FmtDateLong(t),
		TokenMonth, r.locale.MonthWide(t.Month()),
		TokenWeekday, r.locale.WeekdayWide(t.Weekday()),
	}
}
