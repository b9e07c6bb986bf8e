package lesson

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/trezcool/ratiba/core"
)

const maxRoomNameBaseLen = 64

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	roomNameJunkRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	dashesRegex       = regexp.MustCompile(`-{2,}`)
)

// SanitizeRoomName turns a rendered pattern into a URL-safe room name, made unique by a lesson ID suffix.
//
//	SanitizeRoomName("My Series!! Session #3", "3f2a9c1e-...") == "my-series-session-3-3f2a9c1e"
//	SanitizeRoomName("Séance 1", "3f2a9c1e-...") == "seance-1-3f2a9c1e"
func SanitizeRoomName(raw, lessonID string) string {
	name := stripAccents(core.CleanString(raw, true /* lower */))
	name = whitespaceRegex.ReplaceAllString(name, "-")
	name = roomNameJunkRegex.ReplaceAllString(name, "")
	name = dashesRegex.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) > maxRoomNameBaseLen {
		name = strings.TrimRight(name[:maxRoomNameBaseLen], "-")
	}

	suffix := strings.ToLower(strings.ReplaceAll(lessonID, "-", ""))
	if len(suffix) > shortLessonIDSuffixSize {
		suffix = suffix[:shortLessonIDSuffixSize]
	}

	switch {
	case suffix == "":
		return name
	case name == "":
		return suffix
	}
	return name + "-" + suffix
}

// stripAccents folds accented letters to their base letter (é -> e).
func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
