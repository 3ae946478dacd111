package services

import "context"

type fakeAI struct {
	text          string
	err           error
	transcript    string
	transcribeErr error

	prompts    []string
	mediaTypes []string
}

func (f *fakeAI) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeAI) TranscribeAudio(_ context.Context, prompt string, _ []byte, mediaType string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.mediaTypes = append(f.mediaTypes, mediaType)
	return f.transcript, f.transcribeErr
}
