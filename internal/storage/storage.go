package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const sampleObjectLimit = 5

var ErrObjectTooLarge = errors.New("object exceeds size limit")

// Client reads audio objects from one bucket.
type Client struct {
	client       *storage.Client
	bucketName   string
	publicPrefix string
}

func NewClient(ctx context.Context, bucketName, publicPrefix string) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Client{
		client:       client,
		bucketName:   bucketName,
		publicPrefix: publicPrefix,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Bucket() string {
	return c.bucketName
}

// ObjectPath extracts the object name from a reference URL that points
// into the bucket. ok is false for URLs outside it.
func (c *Client) ObjectPath(rawURL string) (string, bool) {
	return ObjectPath(rawURL, c.bucketName, c.publicPrefix)
}

func ObjectPath(rawURL, bucket, publicPrefix string) (string, bool) {
	if bucket == "" || rawURL == "" {
		return "", false
	}

	markers := []string{
		"gs://" + bucket + "/",
		"https://storage.googleapis.com/" + bucket + "/",
		"https://" + bucket + ".storage.googleapis.com/",
		"/storage/v1/object/public/" + bucket + "/",
	}
	if publicPrefix != "" {
		markers = append([]string{strings.TrimRight(publicPrefix, "/") + "/"}, markers...)
	}

	for _, marker := range markers {
		idx := strings.Index(rawURL, marker)
		if idx < 0 {
			continue
		}
		name := rawURL[idx+len(marker):]
		if q := strings.IndexAny(name, "?#"); q >= 0 {
			name = name[:q]
		}
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}

// SignedURL returns a GET URL for objectName that expires after expiry.
func (c *Client) SignedURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := c.client.Bucket(c.bucketName).SignedURL(objectName, &storage.SignedURLOptions{
		Expires: time.Now().Add(expiry),
		Method:  "GET",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return u, nil
}

// Download reads objectName with the service credentials. It refuses
// objects larger than maxBytes.
func (c *Client) Download(ctx context.Context, objectName string, maxBytes int64) ([]byte, string, error) {
	reader, err := c.client.Bucket(c.bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create object reader: %w", err)
	}
	defer reader.Close()

	if maxBytes > 0 && reader.Attrs.Size > maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes", ErrObjectTooLarge, reader.Attrs.Size)
	}

	limit := maxBytes
	if limit <= 0 {
		limit = reader.Attrs.Size
	}
	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, maxBytes)
	}
	return data, reader.Attrs.ContentType, nil
}

type ObjectInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Updated     time.Time `json:"updated"`
}

type BucketInfo struct {
	Name          string       `json:"name"`
	Location      string       `json:"location"`
	StorageClass  string       `json:"storageClass"`
	Created       time.Time    `json:"created"`
	FilesCount    int          `json:"filesCount"`
	SampleObjects []ObjectInfo `json:"sampleObjects"`
}

// Info reports bucket attributes, the total object count and up to five
// sample objects, for diagnostics.
func (c *Client) Info(ctx context.Context) (*BucketInfo, error) {
	bucket := c.client.Bucket(c.bucketName)
	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket attrs: %w", err)
	}

	info := &BucketInfo{
		Name:          attrs.Name,
		Location:      attrs.Location,
		StorageClass:  attrs.StorageClass,
		Created:       attrs.Created,
		SampleObjects: []ObjectInfo{},
	}

	query := &storage.Query{}
	if err := query.SetAttrSelection([]string{"Name", "Size", "ContentType", "Updated"}); err != nil {
		return nil, fmt.Errorf("failed to build object query: %w", err)
	}
	it := bucket.Objects(ctx, query)
	info.FilesCount, info.SampleObjects, err = collectObjects(it.Next, sampleObjectLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return info, nil
}

// collectObjects drains next, counting every object and keeping the first
// limit as samples.
func collectObjects(next func() (*storage.ObjectAttrs, error), limit int) (int, []ObjectInfo, error) {
	count := 0
	samples := []ObjectInfo{}
	for {
		obj, err := next()
		if errors.Is(err, iterator.Done) {
			return count, samples, nil
		}
		if err != nil {
			return 0, nil, err
		}
		count++
		if len(samples) < limit {
			samples = append(samples, ObjectInfo{
				Name:        obj.Name,
				Size:        obj.Size,
				ContentType: obj.ContentType,
				Updated:     obj.Updated,
			})
		}
	}
}
