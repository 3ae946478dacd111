package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/metrics"
	"github.com/voice2post/voice2post/internal/models"
)

// FallbackSummary is shown when the model's reply could not be parsed.
const FallbackSummary = "ไม่สามารถสรุปเนื้อหาได้"

var (
	ErrGenerationFailed = errors.New("post generation failed")
	ErrEmptyTranscript  = errors.New("transcript is empty")
)

// GeneratedPost is either a ParsedPost or a FallbackPost.
type GeneratedPost interface {
	Summary() string
	Post() string
	IsFallback() bool
	generatedPost()
}

type ParsedPost struct {
	SummaryText string `json:"summary"`
	PostText    string `json:"post"`
}

func (p ParsedPost) Summary() string  { return p.SummaryText }
func (p ParsedPost) Post() string     { return p.PostText }
func (p ParsedPost) IsFallback() bool { return false }
func (ParsedPost) generatedPost()     {}

// FallbackPost carries the model's raw reply as the post.
type FallbackPost struct {
	RawText string
}

func (f FallbackPost) Summary() string  { return FallbackSummary }
func (f FallbackPost) Post() string     { return f.RawText }
func (f FallbackPost) IsFallback() bool { return true }
func (FallbackPost) generatedPost()     {}

// ParsePostResponse reads the {"summary","post"} object out of a model
// reply. Anything else becomes a FallbackPost.
func ParsePostResponse(text string) GeneratedPost {
	content := extractJSONObject(cleanJSONMarkdown(text))

	var parsed ParsedPost
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return FallbackPost{RawText: text}
	}
	parsed.SummaryText = strings.TrimSpace(parsed.SummaryText)
	parsed.PostText = strings.TrimSpace(parsed.PostText)
	if parsed.PostText == "" {
		return FallbackPost{RawText: text}
	}
	if parsed.SummaryText == "" {
		parsed.SummaryText = FallbackSummary
	}
	return parsed
}

type PostGenerator struct {
	ai IAIClient
}

func NewPostGenerator(ai IAIClient) *PostGenerator {
	return &PostGenerator{ai: ai}
}

func (g *PostGenerator) Generate(ctx context.Context, transcript string, style models.Style) (GeneratedPost, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	text, err := g.ai.GenerateContent(ctx, BuildPostPrompt(transcript, style))
	if errors.Is(err, ErrEmptyResponse) {
		// An empty reply is output we cannot parse, not a failed call.
		text, err = "", nil
	}
	if err != nil {
		metrics.Generations.WithLabelValues(string(style), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	post := ParsePostResponse(text)
	if post.IsFallback() {
		metrics.Generations.WithLabelValues(string(style), "fallback").Inc()
		logging.EnrichFallback(ctx)
		logging.Logger(ctx).Warn().Str("style", string(style)).Msg("model reply was not the expected JSON, using raw text")
	} else {
		metrics.Generations.WithLabelValues(string(style), "parsed").Inc()
	}
	return post, nil
}
