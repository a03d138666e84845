package imo_test

import (
	"testing"

	"github.com/jmerrifield20/seasense/pkg/imo"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9123456", "9123456"},
		{"  9123456 ", "9123456"},
		{"IMO 9123456", "9123456"},
		{"imo:9123456", "9123456"},
		{"", ""},
		{"0", "0"},
	}
	for _, tt := range tests {
		if got := imo.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"", " ", "0", "0000000", "IMO 0"} {
		if !imo.IsPlaceholder(s) {
			t.Errorf("IsPlaceholder(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"9123456", "1000000", "IMO 9074729"} {
		if imo.IsPlaceholder(s) {
			t.Errorf("IsPlaceholder(%q) = true, want false", s)
		}
	}
}

func TestValidCheckDigit(t *testing.T) {
	// 9*7 + 0*6 + 7*5 + 4*4 + 7*3 + 2*2 = 139
	if !imo.ValidCheckDigit("IMO 9074729") {
		t.Error("expected IMO 9074729 to be valid")
	}
	if imo.ValidCheckDigit("9074728") {
		t.Error("expected 9074728 to be invalid")
	}
	if imo.ValidCheckDigit("907472") {
		t.Error("expected short value to be invalid")
	}
	if imo.ValidCheckDigit("90747a9") {
		t.Error("expected non-digit value to be invalid")
	}
}
