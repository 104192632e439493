// Package util provides common utility functions used across the simulator.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Clamp limits v to the inclusive range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// FormatPayload renders a frame payload as space-separated hex bytes,
// e.g. "27 10 00 00 00 00 00 00".
func FormatPayload(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// ParsePayload parses the FormatPayload representation back into bytes.
// Bytes may be separated by spaces or run together as one hex string.
func ParsePayload(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex payload %q", s)
	}
	data := make([]byte, len(s)/2)
	for i := range data {
		b, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad hex byte %q: %w", s[2*i:2*i+2], err)
		}
		data[i] = byte(b)
	}
	return data, nil
}

// ParseCanID parses a message identifier in decimal ("256") or hex ("0x100").
func ParseCanID(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad message id %q: %w", s, err)
	}
	return uint32(id), nil
}
