package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })

	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"
	s := String()
	for _, want := range []string{"v1.2.3\n", "commit: abc123", "built: 2026-01-02T03:04:05Z", "go: go"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	if !strings.HasPrefix(Template(), "{{.Name}} v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
}
