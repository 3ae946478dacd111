package models

import (
	"testing"
	"time"
)

func TestParseStyle(t *testing.T) {
	cases := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"", StyleFacebook, false},
		{"Facebook", StyleFacebook, false},
		{"IG", StyleIG, false},
		{"Twitter", StyleTwitter, false},
		{"twitter", "", true},
		{"Instagram", "", true},
	}
	for _, tc := range cases {
		got, err := ParseStyle(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseStyle(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseStyle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatProcessingTime(t *testing.T) {
	if got := FormatProcessingTime(1532 * time.Millisecond); got != "1532ms" {
		t.Fatalf("FormatProcessingTime = %q, want 1532ms", got)
	}
}
