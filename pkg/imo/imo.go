// Package imo normalises IMO ship identification numbers as they appear in
// port-authority feeds and the vessel registry.
//
// Feed values are free text: "IMO 9123456", " 9123456 ", "0" and "" all occur.
package imo

import (
	"strings"
	"unicode"
)

// Normalize strips whitespace and a leading "IMO" prefix (any case).
// It does not validate the check digit; registry keys include LR numbers
// that are not valid IMO numbers.
func Normalize(raw string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if len(s) >= 3 && strings.EqualFold(s[:3], "imo") {
		s = s[3:]
		s = strings.TrimLeft(s, ":#-.")
	}
	return s
}

// IsPlaceholder reports whether raw carries no usable identifier: empty
// after normalisation, or zeros only ("0" is the feed's sentinel).
func IsPlaceholder(raw string) bool {
	s := Normalize(raw)
	return strings.Trim(s, "0") == ""
}

// ValidCheckDigit reports whether s is a seven digit IMO number whose last
// digit matches the weighted checksum of the first six.
func ValidCheckDigit(s string) bool {
	s = Normalize(s)
	if len(s) != 7 {
		return false
	}
	sum := 0
	for i := 0; i < 6; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * (7 - i)
	}
	last := s[6]
	if last < '0' || last > '9' {
		return false
	}
	return sum%10 == int(last-'0')
}
