package engine

import "strings"

const maxFileNameRunes = 100

// SanitizeFileName replaces characters that are illegal on common
// filesystems with underscores and truncates to a safe length.
// Truncation counts runes so multi-byte titles are never cut
// mid-character. The operation is idempotent.
func SanitizeFileName(name string) string {
	var b strings.Builder
	count := 0
	for _, r := range name {
		if count == maxFileNameRunes {
			break
		}
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
		count++
	}
	return b.String()
}

// BuildFileName builds the output file name:
// "<course>-<section>.mp4" when a course title was recovered, otherwise
// "<section>.mp4".
func BuildFileName(courseTitle, sectionTitle string) string {
	section := SanitizeFileName(sectionTitle)
	if courseTitle == "" {
		return section + ".mp4"
	}
	return SanitizeFileName(courseTitle) + "-" + section + ".mp4"
}
