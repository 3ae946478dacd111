package services

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultModel           = "gemini-2.5-flash"
	transcribeTemperature  = 0.1
	transcribeOutputTokens = 1000
)

var ErrEmptyResponse = errors.New("empty response from model")

type IAIClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	// TranscribeAudio sends prompt together with the inline audio bytes.
	TranscribeAudio(ctx context.Context, prompt string, audio []byte, mediaType string) (string, error)
}

type GeminiAIClient struct {
	client  *genai.Client
	tracker ITokenTracker
	model   string
}
type GeminiAIClientFuncOptions = func(client *GeminiAIClient) error

func NewGeminiAIClient(ctx context.Context, apiKey string, opts ...GeminiAIClientFuncOptions) (*GeminiAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	geminiai := GeminiAIClient{
		client:  client,
		model:   DefaultModel,
		tracker: NewMetricsTokenTracker(),
	}
	err = applyFuncOptions(&geminiai, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	return &geminiai, nil
}

func WithModel(model string) GeminiAIClientFuncOptions {
	return func(client *GeminiAIClient) error {
		if model == "" {
			return errors.New("model must not be empty")
		}
		client.model = model
		return nil
	}
}

func WithTokenTracker(tracker ITokenTracker) GeminiAIClientFuncOptions {
	return func(client *GeminiAIClient) error {
		client.tracker = tracker
		return nil
	}
}

func (g *GeminiAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	g.trackUsage(ctx, result.UsageMetadata)

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiAIClient) TranscribeAudio(ctx context.Context, prompt string, audio []byte, mediaType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(audio, mediaType),
		}, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](transcribeTemperature),
		MaxOutputTokens: transcribeOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	g.trackUsage(ctx, result.UsageMetadata)

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiAIClient) trackUsage(ctx context.Context, um *genai.GenerateContentResponseUsageMetadata) {
	if um == nil || g.tracker == nil {
		return
	}
	tknIn := um.PromptTokenCount
	tknOut := um.TotalTokenCount - tknIn
	g.tracker.AddTokens(ctx, g.model, int(tknIn), int(tknOut))
}
