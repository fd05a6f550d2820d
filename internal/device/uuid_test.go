package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := map[string]string{
		"2A19":                                 "2a19",
		"0x2a19":                               "2a19",
		"00002a19-0000-1000-8000-00805f9b34fb": "2a19",
		"19B10001-E8F2-537E-4F6C-D104768A1214": "19b10001e8f2537e4f6cd104768a1214",
		"":                                     "",
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, NormalizeUUID(input))
		})
	}
}

func TestCompareUUID(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"180f", "0000180F-0000-1000-8000-00805F9B34FB", true},
		{"0x180f", "180F", true},
		{"19b10000-e8f2-537e-4f6c-d104768a1214", "19b10000e8f2537e4f6cd104768a1214", true},
		{"180f", "180a", false},
		{"19b10000-e8f2-537e-4f6c-d104768a1214", "19b10001-e8f2-537e-4f6c-d104768a1214", false},
		{"", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompareUUID(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}
