package export

import (
	"strings"
	"time"
	"unicode"
)

// Filename builds "{entity}_{code}_attendance_{yyyyMMddHHmmss}.{ext}" using UTC.
func Filename(entity, code string, at time.Time, ext string) string {
	var b strings.Builder
	b.WriteString(entity)
	b.WriteByte('_')
	b.WriteString(SafeSegment(code))
	b.WriteString("_attendance_")
	b.WriteString(at.UTC().Format("20060102150405"))
	b.WriteByte('.')
	b.WriteString(ext)
	return b.String()
}

// SafeSegment keeps letters, digits, dash and underscore; spaces become underscores.
func SafeSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
