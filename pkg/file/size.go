package file

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

var sizeMultipliers = map[byte]int64{
	'b': 1,
	'k': 1 << 10,
	'm': 1 << 20,
	'g': 1 << 30,
}

// SizeToHuman formats a byte count with base-1000 units and two decimals,
// picking the largest unit whose value is at least one.
//
// Example:
//
//	file.SizeToHuman(1500)    // "1.50KB"
//	file.SizeToHuman(2000000) // "2.00MB"
func SizeToHuman(bytes int64) string {
	value := float64(bytes)
	power := 0
	for value >= 1000 && power < len(sizeUnits)-1 {
		value /= 1000
		power++
	}
	return fmt.Sprintf("%.2f%s", value, sizeUnits[power])
}

// ParseSize converts a size such as "512K" or "1m" to bytes.
// Suffixes b, k, m and g (case-insensitive) multiply by 1, 1024, 1024² and 1024³.
// The leading integer is parsed even when the suffix is unknown; text without a
// leading integer yields zero. Results beyond the int64 range are clamped.
func ParseSize(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	number := leadingInt(text)
	if m, ok := sizeMultipliers[lowerASCII(text[len(text)-1])]; ok {
		switch {
		case number > math.MaxInt64/m:
			return math.MaxInt64
		case number < math.MinInt64/m:
			return math.MinInt64
		}
		number *= m
	}
	return number
}

func leadingInt(s string) int64 {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n // ParseInt saturates on ErrRange
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
