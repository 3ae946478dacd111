package ingest

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
)

func audioOf(size int, mediaType, name string) *Audio {
	return &Audio{Data: bytes.Repeat([]byte{0x1}, size), MediaType: mediaType, FileName: name}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		audio   *Audio
		max     int64
		wantErr error
	}{
		{"valid m4a", audioOf(2048, "audio/mp4", "clip.m4a"), 0, nil},
		{"valid by file name", audioOf(2048, "application/octet-stream", "clip.ogg"), 0, nil},
		{"browser webm", audioOf(2048, "video/webm;codecs=opus", "recording"), 0, nil},
		{"too small", audioOf(50, "audio/wav", "clip.wav"), 0, ErrInvalidAudio},
		{"json body", audioOf(2048, "application/json", "clip.wav"), 0, ErrInvalidAudio},
		{"unsupported", audioOf(2048, "image/png", "photo.png"), 0, ErrUnsupportedType},
		{"too large", audioOf(2048, "audio/wav", "clip.wav"), 1024, ErrAudioTooLarge},
		{"empty", &Audio{}, 0, ErrMissingAudio},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.audio, tc.max)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCorrectMediaType(t *testing.T) {
	tests := []struct {
		declared string
		fileName string
		want     string
	}{
		{"application/octet-stream", "clip.m4a", "audio/mp4"},
		{"", "Voice Memo.MP3", "audio/mpeg"},
		{"application/json", "take.webm", "audio/webm"},
		{"", "song.ogg", "audio/ogg"},
		{"", "unknown.bin", "audio/wav"},
		{"audio/webm;codecs=opus", "recording", "audio/webm"},
		{"Audio/MPEG", "x", "audio/mpeg"},
	}
	for _, tc := range tests {
		if got := CorrectMediaType(tc.declared, tc.fileName); got != tc.want {
			t.Errorf("CorrectMediaType(%q, %q) = %q, want %q", tc.declared, tc.fileName, got, tc.want)
		}
	}
}

func TestFromUpload(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="clip.m4a"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(bytes.Repeat([]byte{0x2}, 500))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("audio")
	if err != nil {
		t.Fatalf("FormFile: %v", err)
	}
	defer file.Close()

	audio, err := FromUpload(file, header, 1<<20)
	if err != nil {
		t.Fatalf("FromUpload: %v", err)
	}
	if audio.Size() != 500 || audio.FileName != "clip.m4a" || audio.Source != "upload" {
		t.Fatalf("unexpected audio %+v", audio)
	}
	if got := CorrectMediaType(audio.MediaType, audio.FileName); got != "audio/mp4" {
		t.Fatalf("corrected type = %q, want audio/mp4", got)
	}

	if _, err := file.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := FromUpload(file, header, 100); !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("FromUpload over limit = %v, want ErrAudioTooLarge", err)
	}
}
