package cli

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "package"); got != "1 package" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(0, "file"); got != "0 files" {
		t.Errorf("plural(0) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short  ", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a rather long summary", 8); got != "a rathe…" {
		t.Errorf("truncate = %q", got)
	}
}
