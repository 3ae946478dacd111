package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voice2post/voice2post/internal/storage"
)

type fakeStore struct {
	server      *httptest.Server
	signErr     error
	downloadErr error
	calls       []string
}

func (f *fakeStore) ObjectPath(rawURL string) (string, bool) {
	const marker = "/storage/v1/object/public/audio-files/"
	if i := strings.Index(rawURL, marker); i >= 0 {
		return rawURL[i+len(marker):], true
	}
	return "", false
}

func (f *fakeStore) SignedURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	f.calls = append(f.calls, "sign:"+objectName)
	if expiry != SignedURLExpiry {
		return "", errors.New("unexpected expiry")
	}
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.server.URL + "/signed/" + objectName, nil
}

func (f *fakeStore) Download(_ context.Context, objectName string, _ int64) ([]byte, string, error) {
	f.calls = append(f.calls, "download:"+objectName)
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return bytes.Repeat([]byte{0x3}, 300), "audio/mp4", nil
}

func newAudioServer(t *testing.T, paths map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for prefix, status := range paths {
			if strings.HasPrefix(r.URL.Path, prefix) {
				if status != http.StatusOK {
					w.WriteHeader(status)
					return
				}
				w.Header().Set("Content-Type", "audio/mp4")
				w.Write(bytes.Repeat([]byte{0x4}, 400))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveSignedURLFirst(t *testing.T) {
	srv := newAudioServer(t, map[string]int{"/signed/": http.StatusOK})
	store := &fakeStore{server: srv}
	r := NewResolver(store)

	audio, err := r.Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if audio.Source != "signed_url" || audio.FileName != "clip.m4a" {
		t.Fatalf("unexpected audio source=%q name=%q", audio.Source, audio.FileName)
	}
	if len(store.calls) != 1 || store.calls[0] != "sign:u1/clip.m4a" {
		t.Fatalf("store calls = %v", store.calls)
	}
}

func TestResolveFallsThroughToDirect(t *testing.T) {
	srv := newAudioServer(t, map[string]int{
		"/signed/":            http.StatusForbidden,
		"/storage/v1/object/": http.StatusOK,
	})
	store := &fakeStore{server: srv}

	audio, err := NewResolver(store).Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if audio.Source != "direct" {
		t.Fatalf("source = %q, want direct", audio.Source)
	}
}

func TestResolveFallsThroughToDownload(t *testing.T) {
	srv := newAudioServer(t, map[string]int{})
	store := &fakeStore{server: srv, signErr: errors.New("no signing key")}

	audio, err := NewResolver(store).Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if audio.Source != "download" || audio.MediaType != "audio/mp4" {
		t.Fatalf("unexpected audio %+v", audio)
	}
	want := []string{"sign:u1/clip.m4a", "download:u1/clip.m4a"}
	if strings.Join(store.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("store calls = %v, want %v", store.calls, want)
	}
}

func TestResolveAllFailReportsLastError(t *testing.T) {
	srv := newAudioServer(t, map[string]int{})
	store := &fakeStore{server: srv, signErr: errors.New("no signing key"), downloadErr: errors.New("object missing")}

	_, err := NewResolver(store).Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "object missing") {
		t.Fatalf("err = %v, want last error carried", err)
	}
}

func TestResolveExternalURLDirectOnly(t *testing.T) {
	srv := newAudioServer(t, map[string]int{"/files/": http.StatusOK})
	store := &fakeStore{server: srv}

	audio, err := NewResolver(store).Resolve(context.Background(), srv.URL+"/files/talk.mp3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if audio.Source != "direct" || len(store.calls) != 0 {
		t.Fatalf("source=%q store calls=%v", audio.Source, store.calls)
	}
}

func TestResolveTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	r := NewResolver(nil, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := r.Resolve(context.Background(), srv.URL+"/slow.wav")
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("err = %v, want ErrFetchTimeout", err)
	}
}

func TestResolveTooLargeStops(t *testing.T) {
	srv := newAudioServer(t, map[string]int{"/signed/": http.StatusOK})
	store := &fakeStore{server: srv}

	_, err := NewResolver(store, WithMaxBytes(100)).Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("err = %v, want ErrAudioTooLarge", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("chain continued after size failure: %v", store.calls)
	}
}

func TestResolveOversizedDownload(t *testing.T) {
	srv := newAudioServer(t, map[string]int{})
	store := &fakeStore{
		server:      srv,
		signErr:     errors.New("no signing key"),
		downloadErr: fmt.Errorf("%w: 30000000 bytes", storage.ErrObjectTooLarge),
	}

	_, err := NewResolver(store).Resolve(context.Background(), srv.URL+"/storage/v1/object/public/audio-files/u1/clip.m4a")
	if !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("err = %v, want ErrAudioTooLarge", err)
	}
	if errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, oversize must not read as a failed fetch", err)
	}
}

func TestResolveRejectsBadURL(t *testing.T) {
	if _, err := NewResolver(nil).Resolve(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrInvalidAudio) {
		t.Fatalf("err = %v, want ErrInvalidAudio", err)
	}
	if _, err := NewResolver(nil).Resolve(context.Background(), ""); !errors.Is(err, ErrMissingAudio) {
		t.Fatalf("err = %v, want ErrMissingAudio", err)
	}
}
