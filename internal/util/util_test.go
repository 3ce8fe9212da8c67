package util

import (
	"math"
	"testing"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "s1mple", "s1mple"},
		{"encoded space", "Sir%20Lag", "Sir Lag"},
		{"encoded unicode", "%C3%B8rjan", "ørjan"},
		{"invalid escape kept", "100%", "100%"},
		{"invalid hex kept", "%zz", "%zz"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DecodeName(tt.input)
			if result != tt.expected {
				t.Errorf("DecodeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{-1.234, -1.23},
		{0, 0},
		{-0.001, 0},
		{0.125, 0.13},
		{-0.125, -0.12},
	}

	for _, tt := range tests {
		result := Round2(tt.input)
		if result != tt.expected {
			t.Errorf("Round2(%v) = %v, want %v", tt.input, result, tt.expected)
		}
		if math.Signbit(result) && result == 0 {
			t.Errorf("Round2(%v) returned negative zero", tt.input)
		}
	}
}

func TestViewAngle(t *testing.T) {
	tests := []struct {
		yaw      float64
		expected float64
	}{
		{0, 90},
		{90, 0},
		{180, 270},
		{-90, 180},
		{45, 45},
		{-180, 270},
		{12.3456, 77.65},
		{90.001, 0},
		{90.125, 359.88},
		{-270, 0},
	}

	for _, tt := range tests {
		result := ViewAngle(tt.yaw)
		if result != tt.expected {
			t.Errorf("ViewAngle(%v) = %v, want %v", tt.yaw, result, tt.expected)
		}
		if result < 0 || result >= 360 {
			t.Errorf("ViewAngle(%v) = %v out of [0, 360)", tt.yaw, result)
		}
	}
}
