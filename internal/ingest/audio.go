// Package ingest turns an upload or a reference URL into validated audio
// bytes ready for transcription.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

const (
	MinAudioBytes = 100
	// DefaultMediaType is used when neither the declared type nor the
	// file name identify the format.
	DefaultMediaType = "audio/wav"
)

var (
	ErrMissingAudio    = errors.New("no audio provided")
	ErrInvalidAudio    = errors.New("invalid audio file")
	ErrUnsupportedType = errors.New("unsupported audio type")
	ErrAudioTooLarge   = errors.New("audio file too large")
	ErrFetchFailed     = errors.New("failed to fetch audio")
	ErrFetchTimeout    = errors.New("timed out fetching audio")
)

// allowedTokens are matched as substrings of the declared media type or
// the lower-cased file name.
var allowedTokens = []string{"wav", "wave", "x-wav", "mp3", "mpeg", "mp4", "m4a", "webm", "ogg"}

var extensionTypes = []struct {
	ext       string
	mediaType string
}{
	{".wav", "audio/wav"},
	{".mp3", "audio/mpeg"},
	{".m4a", "audio/mp4"},
	{".webm", "audio/webm"},
	{".ogg", "audio/ogg"},
}

type Audio struct {
	Data      []byte
	FileName  string
	MediaType string
	// Source names where the bytes came from: "upload" or a fetch strategy.
	Source string
}

func (a *Audio) Size() int64 {
	return int64(len(a.Data))
}

// Validate checks size and declared type. maxBytes <= 0 disables the
// upper bound.
func Validate(a *Audio, maxBytes int64) error {
	if a == nil || len(a.Data) == 0 {
		return ErrMissingAudio
	}
	if maxBytes > 0 && a.Size() > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrAudioTooLarge, a.Size(), maxBytes)
	}
	declared := strings.ToLower(a.MediaType)
	if a.Size() < MinAudioBytes || strings.Contains(declared, "json") {
		return fmt.Errorf("%w: %s (%d bytes)", ErrInvalidAudio, a.MediaType, a.Size())
	}

	name := strings.ToLower(a.FileName)
	for _, token := range allowedTokens {
		if strings.Contains(declared, token) || strings.Contains(name, token) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, a.MediaType)
}

// CorrectMediaType returns the media type to send to the transcriber.
// Parameters such as ";codecs=opus" are dropped. A missing, generic or
// JSON-like declared type is replaced by a guess from the file name.
func CorrectMediaType(declared, fileName string) string {
	mediaType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	} else if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	if mediaType != "" && mediaType != "application/octet-stream" && !strings.Contains(mediaType, "json") {
		return mediaType
	}

	name := strings.ToLower(fileName)
	for _, et := range extensionTypes {
		if strings.Contains(name, et.ext) {
			return et.mediaType
		}
	}
	return DefaultMediaType
}

// FromUpload reads a multipart file part, refusing more than maxBytes.
func FromUpload(file multipart.File, header *multipart.FileHeader, maxBytes int64) (*Audio, error) {
	if file == nil || header == nil {
		return nil, ErrMissingAudio
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrAudioTooLarge, header.Size, maxBytes)
	}

	data, err := readLimited(file, maxBytes)
	if err != nil {
		return nil, err
	}
	return &Audio{
		Data:      data,
		FileName:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Source:    "upload",
	}, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, maxBytes)
	}
	return data, nil
}
