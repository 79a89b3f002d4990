package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type validateCase struct {
	name    string
	input   string
	want    string
	wantErr bool
}

func runValidateCases(t *testing.T, fn func(string) (string, string), tests []validateCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := fn(tt.input)
			if tt.wantErr {
				assert.NotEmpty(t, errMsg)
			} else {
				assert.Empty(t, errMsg)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateVideoID(t *testing.T) {
	runValidateCases(t, ValidateVideoID, []validateCase{
		{"valid short", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"valid with dash", "abc-def_123", "abc-def_123", false},
		{"trims whitespace", "  abc  ", "abc", false},
		{"empty", "", "", true},
		{"too long", "12345678901234567", "", true},
		{"exactly 16", "1234567890123456", "1234567890123456", false},
		{"invalid chars", "abc def", "", true},
		{"sql injection", "a'; DROP--", "", true},
		{"unicode", "abcédef", "", true},
	})
}

func TestValidateChannelID(t *testing.T) {
	runValidateCases(t, ValidateChannelID, []validateCase{
		{"valid", "UCuAXFkgsw1L7xaCfnd5JJOw", "UCuAXFkgsw1L7xaCfnd5JJOw", false},
		{"empty", "", "", true},
		{"too long 33", "123456789012345678901234567890123", "", true},
		{"exactly 32", "12345678901234567890123456789012", "12345678901234567890123456789012", false},
		{"invalid chars", "UC test!", "", true},
	})
}

func TestValidateOptionalChannelID(t *testing.T) {
	runValidateCases(t, ValidateOptionalChannelID, []validateCase{
		{"empty is allowed", "", "", false},
		{"blank is allowed", "   ", "", false},
		{"valid", "UCabc", "UCabc", false},
		{"invalid chars", "UC test!", "", true},
	})
}

func TestValidateUserID(t *testing.T) {
	runValidateCases(t, ValidateUserID, []validateCase{
		{"valid sha256", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2", false},
		{"uppercase normalized", "ABCD1234", "abcd1234", false},
		{"empty", "", "", true},
		{"too long 65", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2a", "", true},
		{"non-hex chars", "xyz123", "", true},
		{"sql injection", "abc'; DROP--", "", true},
	})
}

func TestValidateCategory(t *testing.T) {
	for _, c := range model.Categories {
		got, errMsg := ValidateCategory(" " + string(c) + " ")
		assert.Empty(t, errMsg)
		assert.Equal(t, c, got)
	}

	for _, raw := range []string{"", "deepfake", "FULLY_AI"} {
		got, errMsg := ValidateCategory(raw)
		assert.NotEmpty(t, errMsg, raw)
		assert.Empty(t, got)
	}
}

func TestValidateUserAgent(t *testing.T) {
	assert.Equal(t, "RealTube/1.0", ValidateUserAgent("  RealTube/1.0  "))
	assert.Len(t, ValidateUserAgent(strings.Repeat("x", 200)), MaxUserAgentLen)
}
