// Package util provides small helpers shared by the parser and the push receiver.
package util

import (
	"math"
	"net/url"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// DecodeName percent-decodes a player name as sent by the game client.
// Names that are not valid percent-encoding are returned unchanged.
func DecodeName(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Round2 rounds f to two decimals, halves toward positive infinity.
// Negative zero is normalized to zero.
func Round2(f float64) float64 {
	r := math.Floor(f*100+0.5) / 100
	if r == 0 {
		return 0
	}
	return r
}

// ViewAngle converts an engine yaw to a radar heading in [0, 360).
func ViewAngle(yaw float64) float64 {
	angle := Round2(-yaw + 90)
	if angle < 0 {
		angle += 360
	}
	if angle >= 360 {
		angle -= 360
	}
	return angle
}
