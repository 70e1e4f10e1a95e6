package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxOutputTokensSnapsToSupportedValues(t *testing.T) {
	tests := []struct {
		env  string
		want int
	}{
		{"", 800},
		{"800", 800},
		{"1024", 1024},
		{"100", 800},
		{"900", 1024},
		{"65536", 1024},
		{"not-a-number", 800},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("GEMINI_MAX_OUTPUT_TOKENS", tt.env)
			assert.Equal(t, tt.want, Load().Generation.MaxOutputTokens)
		})
	}
}
