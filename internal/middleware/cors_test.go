package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{" , ", []string{"*"}},
		{"chrome-extension://abc", []string{"chrome-extension://abc"}},
		{"chrome-extension://abc, moz-extension://def ,", []string{"chrome-extension://abc", "moz-extension://def"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseOrigins(tt.raw), "ParseOrigins(%q)", tt.raw)
	}
}
