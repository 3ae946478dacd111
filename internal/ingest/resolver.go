package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/metrics"
	"github.com/voice2post/voice2post/internal/storage"
)

const (
	DefaultFetchTimeout = 15 * time.Second
	SignedURLExpiry     = 5 * time.Minute
	fallbackFileName    = "audio.m4a"
)

// ObjectStore is the part of the storage client the resolver needs.
type ObjectStore interface {
	ObjectPath(rawURL string) (string, bool)
	SignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	Download(ctx context.Context, objectName string, maxBytes int64) ([]byte, string, error)
}

// Strategy is one way of obtaining the audio behind a reference URL.
type Strategy struct {
	Name  string
	Fetch func(ctx context.Context) (*Audio, error)
}

type Resolver struct {
	store      ObjectStore
	httpClient *http.Client
	maxBytes   int64
}

type ResolverOption func(*Resolver)

func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

func WithMaxBytes(n int64) ResolverOption {
	return func(r *Resolver) {
		r.maxBytes = n
	}
}

func NewResolver(store ObjectStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:      store,
		httpClient: &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategies lists, in order, the ways rawURL will be fetched. URLs into
// the bucket try a signed URL, then the URL itself, then a credentialed
// download. Any other URL is fetched directly.
func (r *Resolver) Strategies(rawURL string) []Strategy {
	fileName := fileNameFromURL(rawURL)
	direct := Strategy{Name: "direct", Fetch: func(ctx context.Context) (*Audio, error) {
		return r.fetchURL(ctx, rawURL, fileName)
	}}

	if r.store == nil {
		return []Strategy{direct}
	}
	objectName, ok := r.store.ObjectPath(rawURL)
	if !ok {
		return []Strategy{direct}
	}

	return []Strategy{
		{Name: "signed_url", Fetch: func(ctx context.Context) (*Audio, error) {
			signed, err := r.store.SignedURL(ctx, objectName, SignedURLExpiry)
			if err != nil {
				return nil, err
			}
			return r.fetchURL(ctx, signed, fileName)
		}},
		direct,
		{Name: "download", Fetch: func(ctx context.Context) (*Audio, error) {
			data, contentType, err := r.store.Download(ctx, objectName, r.maxBytes)
			if errors.Is(err, storage.ErrObjectTooLarge) {
				return nil, fmt.Errorf("%w: %v", ErrAudioTooLarge, err)
			}
			if err != nil {
				return nil, err
			}
			return &Audio{Data: data, FileName: fileName, MediaType: contentType}, nil
		}},
	}
}

// Resolve runs the strategies for rawURL in order and returns the first
// success. When all fail the last error is returned, marked with
// ErrFetchTimeout if it was a timeout and ErrFetchFailed otherwise.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Audio, error) {
	if rawURL == "" {
		return nil, ErrMissingAudio
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "gs") {
		return nil, fmt.Errorf("%w: unsupported audio URL", ErrInvalidAudio)
	}
	return RunStrategies(ctx, r.Strategies(rawURL))
}

func RunStrategies(ctx context.Context, strategies []Strategy) (*Audio, error) {
	var lastErr error
	for _, s := range strategies {
		audio, err := s.Fetch(ctx)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues(s.Name, "ok").Inc()
			audio.Source = s.Name
			return audio, nil
		}

		metrics.FetchAttempts.WithLabelValues(s.Name, "error").Inc()
		logging.Logger(ctx).Warn().Err(err).Str("strategy", s.Name).Msg("audio fetch strategy failed")
		lastErr = fmt.Errorf("%s: %w", s.Name, err)

		if errors.Is(err, ErrAudioTooLarge) {
			return nil, lastErr
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		return nil, ErrMissingAudio
	}
	if isTimeout(lastErr) {
		return nil, fmt.Errorf("%w: %v", ErrFetchTimeout, lastErr)
	}
	return nil, fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
}

func (r *Resolver) fetchURL(ctx context.Context, rawURL, fileName string) (*Audio, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if r.maxBytes > 0 && resp.ContentLength > r.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrAudioTooLarge, resp.ContentLength, r.maxBytes)
	}

	data, err := readLimited(resp.Body, r.maxBytes)
	if err != nil {
		return nil, err
	}
	return &Audio{
		Data:      data,
		FileName:  fileName,
		MediaType: resp.Header.Get("Content-Type"),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackFileName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallbackFileName
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}
