package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/pipios/internal/config"
	"github.com/matzehuels/pipios/pkg/errors"
)

func TestRootCommandAliases(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	tests := map[string]string{
		"i":         "install",
		"u":         "update",
		"d":         "uninstall",
		"delete":    "uninstall",
		"l":         "list",
		"p":         "show",
		"info":      "show",
		"releases":  "releases",
		"resolve":   "resolve",
		"path":      "path",
		"count":     "count",
		"size":      "size",
		"version":   "version",
		"uninstall": "uninstall",
	}
	for alias, want := range tests {
		cmd, _, err := root.Find([]string{alias})
		if err != nil {
			t.Errorf("Find(%q): %v", alias, err)
			continue
		}
		if cmd.Name() != want {
			t.Errorf("Find(%q) = %s, want %s", alias, cmd.Name(), want)
		}
	}
}

func metadata(name, v string, requires []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nVersion: %s\nSummary: the %s package\n", name, v, name)
	for _, line := range requires {
		b.WriteString("Requires-Dist: " + line + "\n")
	}
	return b.String()
}

// soloIndex serves "solo" 1.0, which depends on "helper" 0.3.
func soloIndex(t *testing.T) *httptest.Server {
	t.Helper()
	requires := map[string][]string{"solo": {"helper>=0.2"}, "helper": nil}
	versions := map[string]string{"solo": "1.0", "helper": "0.3"}

	wheel := func(name string) []byte {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		dist := fmt.Sprintf("%s-%s.dist-info", name, versions[name])
		for fn, body := range map[string]string{
			name + "/__init__.py": "",
			dist + "/METADATA":    metadata(name, versions[name], requires[name]),
			dist + "/RECORD":      fmt.Sprintf("%s/__init__.py,,\n%s/METADATA,,\n%s/RECORD,,\n", name, dist, dist),
		} {
			w, err := zw.Create(fn)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(w, body); err != nil {
				t.Fatal(err)
			}
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if parts[0] == "files" {
			_, _ = w.Write(wheel(parts[1]))
			return
		}
		name := parts[0]
		v, ok := versions[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		file := map[string]any{
			"filename":    fmt.Sprintf("%s-%s-py3-none-any.whl", name, v),
			"url":         "http://" + r.Host + "/files/" + name,
			"packagetype": "bdist_wheel",
		}
		info := map[string]any{"name": name, "version": v, "summary": "the " + name + " package", "requires_dist": requires[name]}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"info":     info,
			"releases": map[string]any{v: []any{file}},
			"urls":     []any{file},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setup points the configuration at srv and a fresh target directory.
func setup(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), "site-packages")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvTarget, target)
	t.Setenv(config.EnvIndexURL, srv.URL)
	t.Setenv(config.EnvPython, "3.11.2")
	t.Setenv(config.EnvPlatform, "")
	return target
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestInstallListUninstall(t *testing.T) {
	target := setup(t, soloIndex(t))

	out, err := run(t, "install", "solo")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	helper, solo := strings.Index(out, "Installed helper 0.3"), strings.Index(out, "Installed solo 1.0")
	if helper < 0 || solo < 0 || helper > solo {
		t.Errorf("install output:\n%s", out)
	}

	if out, _ := run(t, "count"); strings.TrimSpace(out) != "2" {
		t.Errorf("count = %q, want 2", out)
	}
	if out, _ := run(t, "path"); strings.TrimSpace(out) != target {
		t.Errorf("path = %q, want %s", out, target)
	}
	if out, _ := run(t, "list"); !strings.Contains(out, "solo") || !strings.Contains(out, "the helper package") {
		t.Errorf("list output:\n%s", out)
	}
	if out, err := run(t, "show", "solo"); err != nil || !strings.Contains(out, "helper>=0.2") {
		t.Errorf("show output (%v):\n%s", err, out)
	}

	out, err = run(t, "resolve", "solo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "already satisfied") || !strings.Contains(out, "Nothing to install") {
		t.Errorf("resolve output:\n%s", out)
	}

	if out, err := run(t, "uninstall", "solo"); err != nil || !strings.Contains(out, "Removed solo") {
		t.Errorf("uninstall output (%v):\n%s", err, out)
	}
	if out, _ := run(t, "d", "solo"); !strings.Contains(out, "not installed") {
		t.Errorf("second uninstall output:\n%s", out)
	}
	if out, _ := run(t, "count"); strings.TrimSpace(out) != "1" {
		t.Errorf("count after uninstall = %q, want 1", out)
	}
}

func TestResolveDryRunLeavesTargetEmpty(t *testing.T) {
	setup(t, soloIndex(t))

	out, err := run(t, "install", "--dry-run", "solo")
	if err != nil {
		t.Fatalf("install --dry-run: %v", err)
	}
	if !strings.Contains(out, "Install (2)") || !strings.Contains(out, "(for solo)") {
		t.Errorf("plan output:\n%s", out)
	}
	if out, _ := run(t, "count"); strings.TrimSpace(out) != "0" {
		t.Errorf("count = %q, want 0", out)
	}
}

func TestReleases(t *testing.T) {
	setup(t, soloIndex(t))
	out, err := run(t, "releases", "solo")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1.0 (latest)") {
		t.Errorf("releases output:\n%s", out)
	}
}

func TestInstallErrors(t *testing.T) {
	setup(t, soloIndex(t))

	tests := []struct {
		args []string
		code errors.Code
	}{
		{[]string{"install"}, errors.ErrCodeInvalidInput},
		{[]string{"install", "--version", "1.0", "solo", "helper"}, errors.ErrCodeInvalidInput},
		{[]string{"install", "ghost"}, errors.ErrCodeNotFound},
		{[]string{"install", "-r", "missing-requirements.txt"}, errors.ErrCodeFilesystem},
		{[]string{"show", "solo"}, errors.ErrCodeNotFound},
		{[]string{"size", "solo"}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestResolveJSON(t *testing.T) {
	setup(t, soloIndex(t))

	out, err := run(t, "resolve", "--json", "solo")
	if err != nil {
		t.Fatalf("resolve --json: %v", err)
	}
	var doc struct {
		Roots        []string `json:"roots"`
		InstallOrder []string `json:"install_order"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if strings.Join(doc.InstallOrder, " ") != "helper solo" {
		t.Errorf("install_order = %v", doc.InstallOrder)
	}

	path := filepath.Join(t.TempDir(), "plan.json")
	if _, err := run(t, "resolve", "-o", path, "solo"); err != nil {
		t.Fatalf("resolve -o: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("plan file: %v", err)
	}
}
