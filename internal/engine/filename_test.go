package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "lesson one", "lesson one"},
		{"forbidden characters", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"fullwidth punctuation kept", "第一章：入门/基础", "第一章：入门_基础"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}
}

func TestSanitizeFileNameTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("课", 150)
	got := SanitizeFileName(long)
	assert.Equal(t, 100, len([]rune(got)))
	assert.Equal(t, strings.Repeat("课", 100), got, "truncation never cuts mid-character")
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	input := `week 1: intro?` + strings.Repeat("x", 200)
	once := SanitizeFileName(input)
	assert.Equal(t, once, SanitizeFileName(once))
}

func TestBuildFileName(t *testing.T) {
	assert.Equal(t, "lesson.mp4", BuildFileName("", "lesson"))
	assert.Equal(t, "course-lesson.mp4", BuildFileName("course", "lesson"))
	assert.Equal(t, "c_1-s_2.mp4", BuildFileName("c:1", "s/2"))
}
