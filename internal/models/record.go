package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Style string

const (
	StyleFacebook Style = "Facebook"
	StyleIG       Style = "IG"
	StyleTwitter  Style = "Twitter"
)

// Styles lists the accepted styles in display order.
var Styles = []Style{StyleFacebook, StyleIG, StyleTwitter}

// ParseStyle maps the wire value to a Style. The empty string selects
// StyleFacebook.
func ParseStyle(s string) (Style, error) {
	if s == "" {
		return StyleFacebook, nil
	}
	for _, style := range Styles {
		if string(style) == s {
			return style, nil
		}
	}
	return "", fmt.Errorf("unknown style %q", s)
}

type Action string

const (
	ActionTranscribe   Action = "transcribe"
	ActionGeneratePost Action = "generate_post"
)

type Record struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	AudioURL       *string   `json:"audio_url,omitempty"`
	FileName       *string   `json:"file_name,omitempty"`
	FileSize       *int64    `json:"file_size,omitempty"`
	Transcript     string    `json:"transcript"`
	Summary        string    `json:"summary"`
	GeneratedPost  string    `json:"generated_post"`
	Style          Style     `json:"style"`
	ProcessingTime string    `json:"processing_time"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type UsageLog struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	Action         Action    `json:"action"`
	FileSize       *int64    `json:"file_size,omitempty"`
	ProcessingTime string    `json:"processing_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// FormatProcessingTime renders a duration the way processing_time columns
// store it, e.g. "1532ms".
func FormatProcessingTime(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
