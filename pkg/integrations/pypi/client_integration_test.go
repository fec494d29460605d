//go:build integration

package pypi

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/pipios/pkg/cache"
)

func TestFetchProject_Integration(t *testing.T) {
	client := NewClient(cache.NewMemoryCache(), "", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{"requests", "requests", false},
		{"six", "six", false},
		{"nonexistent", "this-package-should-not-exist-12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := client.FetchProject(ctx, tt.pkg, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("FetchProject(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if p.Latest == "" {
					t.Error("latest version should not be empty")
				}
				if len(p.Versions) == 0 {
					t.Error("versions should not be empty")
				}
			}
		})
	}
}

func TestFetchRelease_Integration(t *testing.T) {
	client := NewClient(cache.NewMemoryCache(), "", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := client.FetchRelease(ctx, "requests", "2.31.0", false)
	if err != nil {
		t.Fatalf("FetchRelease(requests) error: %v", err)
	}
	if len(r.Requires) == 0 {
		t.Error("requests should have dependencies")
	}
	if len(r.Artifacts) == 0 {
		t.Error("requests should have artifacts")
	}
}
