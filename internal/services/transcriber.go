package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/voice2post/voice2post/internal/ingest"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/metrics"
)

const transcriptionPrompt = "Please transcribe this audio file to text. Respond only with the transcription, no additional commentary. If the audio is in Thai, transcribe in Thai. If it's in English, transcribe in English."

var ErrTranscriptionFailed = errors.New("transcription failed")

var demoTranscripts = []string{
	"สวัสดีครับ นี่คือการทดสอบระบบแปลงเสียงเป็นข้อความ",
	"Hello, this is a test of the voice-to-text system",
	"ขอบคุณที่ใช้บริการของเรา ระบบกำลังในช่วงทดสอบ",
	"Thank you for using our service. The system is currently in testing phase",
}

type Transcript struct {
	Text     string
	Strategy string
	Fallback bool
}

// TranscribeStrategy is one way of producing a transcript.
type TranscribeStrategy struct {
	Name     string
	Fallback bool
	Run      func(ctx context.Context, audio *ingest.Audio) (string, error)
}

type Transcriber struct {
	ai           IAIClient
	demoFallback bool
	pick         func(n int) int
}

type TranscriberOption func(*Transcriber)

// WithDemoFallback controls whether a canned demo transcript replaces a
// failed transcription.
func WithDemoFallback(enabled bool) TranscriberOption {
	return func(t *Transcriber) {
		t.demoFallback = enabled
	}
}

// WithPicker replaces the random choice of demo sentence.
func WithPicker(pick func(n int) int) TranscriberOption {
	return func(t *Transcriber) {
		t.pick = pick
	}
}

func NewTranscriber(ai IAIClient, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		ai:           ai,
		demoFallback: true,
		pick:         rand.IntN,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcriber) Strategies() []TranscribeStrategy {
	strategies := []TranscribeStrategy{{
		Name: "ai",
		Run: func(ctx context.Context, audio *ingest.Audio) (string, error) {
			mediaType := ingest.CorrectMediaType(audio.MediaType, audio.FileName)
			text, err := t.ai.TranscribeAudio(ctx, transcriptionPrompt, audio.Data, mediaType)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(text), nil
		},
	}}
	if t.demoFallback {
		strategies = append(strategies, TranscribeStrategy{
			Name:     "demo",
			Fallback: true,
			Run: func(_ context.Context, audio *ingest.Audio) (string, error) {
				return t.demoTranscript(audio), nil
			},
		})
	}
	return strategies
}

// Transcribe tries each strategy in order and returns the first non-empty
// transcript. If none succeeds the last error is wrapped in
// ErrTranscriptionFailed.
func (t *Transcriber) Transcribe(ctx context.Context, audio *ingest.Audio) (*Transcript, error) {
	var lastErr error
	for _, s := range t.Strategies() {
		text, err := s.Run(ctx, audio)
		if err == nil && text == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			logging.Logger(ctx).Warn().Err(err).Str("strategy", s.Name).Msg("transcription strategy failed")
			lastErr = fmt.Errorf("%s: %w", s.Name, err)
			continue
		}

		metrics.Transcriptions.WithLabelValues(s.Name).Inc()
		if s.Fallback {
			logging.EnrichFallback(ctx)
			logging.Logger(ctx).Warn().AnErr("cause", lastErr).Msg("using demo transcript")
		}
		return &Transcript{Text: text, Strategy: s.Name, Fallback: s.Fallback}, nil
	}
	metrics.Transcriptions.WithLabelValues("none").Inc()
	return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, lastErr)
}

func (t *Transcriber) demoTranscript(audio *ingest.Audio) string {
	sentence := demoTranscripts[t.pick(len(demoTranscripts))]
	return fmt.Sprintf("[Demo] %s (file: %s, size: %d bytes)", sentence, audio.FileName, audio.Size())
}
