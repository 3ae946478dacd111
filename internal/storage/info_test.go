package storage

import (
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

func objectIterator(n int, failAt int) func() (*storage.ObjectAttrs, error) {
	i := 0
	return func() (*storage.ObjectAttrs, error) {
		if i == failAt {
			return nil, errors.New("listing interrupted")
		}
		if i >= n {
			return nil, iterator.Done
		}
		i++
		return &storage.ObjectAttrs{Name: fmt.Sprintf("u1/clip-%d.m4a", i), Size: int64(i * 100)}, nil
	}
}

func TestCollectObjects(t *testing.T) {
	tests := []struct {
		name        string
		objects     int
		wantSamples int
	}{
		{"empty bucket", 0, 0},
		{"under the sample limit", 3, 3},
		{"over the sample limit", 12, sampleObjectLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, samples, err := collectObjects(objectIterator(tt.objects, -1), sampleObjectLimit)
			if err != nil {
				t.Fatalf("collectObjects: %v", err)
			}
			if count != tt.objects {
				t.Errorf("count = %d, want %d", count, tt.objects)
			}
			if len(samples) != tt.wantSamples {
				t.Errorf("samples = %d, want %d", len(samples), tt.wantSamples)
			}
			if samples == nil {
				t.Error("samples is nil, want empty slice for JSON")
			}
		})
	}

	if _, _, err := collectObjects(objectIterator(10, 7), sampleObjectLimit); err == nil {
		t.Fatal("collectObjects ignored a listing error")
	}
}
