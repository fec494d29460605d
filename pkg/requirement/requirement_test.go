package requirement

import (
	"testing"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/version"
)

func testEnv(py string) Environment {
	return Environment{
		Interpreter: version.MustParse(py),
		Platform:    "macosx_10_9_x86_64",
		SysPlatform: "ios",
		Machine:     "arm64",
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line       string
		wantName   string
		wantSpec   string
		wantExtras int
		wantGroups int
	}{
		{"requests", "requests", "", 0, 0},
		{"libx (>=2.0,<3.0)", "libx", ">=2.0,<3.0", 0, 0},
		{"libx>=2.0, <3.0", "libx", ">=2.0,<3.0", 0, 0},
		{"numx (>=1.20) ; interpreter-version < \"3.10\"", "numx", ">=1.20", 0, 1},
		{"req[socks,security] (>=2.0)", "req", ">=2.0", 2, 0},
		{"zope.interface ; sys_platform == \"ios\", sys_platform == \"linux\"", "zope.interface", "", 0, 2},
		{"a ; python_version >= \"3\" and (extra == \"x\" or extra == \"y\")", "a", "", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			dep, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if dep.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", dep.Name, tt.wantName)
			}
			if got := dep.Specifiers.String(); got != tt.wantSpec {
				t.Errorf("Specifiers = %q, want %q", got, tt.wantSpec)
			}
			if len(dep.Extras) != tt.wantExtras {
				t.Errorf("Extras = %v, want %d", dep.Extras, tt.wantExtras)
			}
			if len(dep.Groups) != tt.wantGroups {
				t.Errorf("Groups = %d, want %d", len(dep.Groups), tt.wantGroups)
			}
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	lines := []string{
		"",
		"(>=1.0)",
		"libx (>>1.0)",
		"libx [a",
		"libx @ https://example.com/libx.whl",
		"libx ; unknown_key == \"1\"",
		"libx ; (python_version < \"3\"",
		"libx ; python_version",
		"libx ; python_version < \"3",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, err := ParseLine(line)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeSpecifierParse) {
				t.Errorf("error code = %s, want SPECIFIER_PARSE", errors.GetCode(err))
			}
		})
	}
}

func TestApplies(t *testing.T) {
	tests := []struct {
		line  string
		py    string
		flags []string
		want  bool
	}{
		{"numx (>=1.20) ; interpreter-version < \"3.10\"", "3.11", nil, false},
		{"numx (>=1.20) ; interpreter-version < \"3.10\"", "3.9.7", nil, true},
		{"plain", "3.11", nil, true},
		{"pytest ; extra == \"tests\"", "3.11", nil, false},
		{"pytest ; extra == \"tests\"", "3.11", []string{"Tests"}, true},
		{"pytest ; feature-flag != \"tests\"", "3.11", nil, true},
		{"a ; sys_platform == \"win32\", sys_platform == \"ios\"", "3.11", nil, true},
		{"a ; sys_platform == \"win32\" and python_version >= \"3.8\"", "3.11", nil, false},
		{"a ; python_version >= \"3.8\" and (sys_platform == \"win32\" or platform == \"ios\")", "3.11", nil, true},
		{"a ; \"3.8\" < python_version", "3.11", nil, true},
		{"a ; \"3.12\" <= python_version", "3.11", nil, false},
		{"a ; \"io\" in sys_platform", "3.11", nil, true},
		{"a ; \"win\" not in sys_platform", "3.11", nil, true},
		{"a ; platform_system == \"iOS\"", "3.11", nil, true},
		{"a ; os_name == \"nt\"", "3.11", nil, false},
		{"a ; platform_python_implementation == \"CPython\"", "3.11", nil, true},
		{"a ; python_full_version >= \"3.11.2\"", "3.11.4", nil, true},
		{"a ; python_version == \"3.11\"", "3.11.4", nil, true},
		{"a ; python_version ~= \"3.8\"", "3.11", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line+"@"+tt.py, func(t *testing.T) {
			dep := MustParseLine(tt.line)
			env := testEnv(tt.py).WithFlags(tt.flags...)
			if got := dep.Applies(env); got != tt.want {
				t.Errorf("Applies = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithFlagsDoesNotMutate(t *testing.T) {
	base := testEnv("3.10.4").WithFlags("a")
	derived := base.WithFlags("b")
	if base.HasFlag("b") {
		t.Error("base environment gained flag b")
	}
	if !derived.HasFlag("a") || !derived.HasFlag("b") {
		t.Errorf("derived flags = %v", derived.Flags)
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct{ in, canon, fs string }{
		{"Foo_Bar", "foo-bar", "foo_bar"},
		{"zope.interface", "zope-interface", "zope_interface"},
		{"a--b__c", "a-b-c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.canon {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.canon)
		}
		if got := FilesystemName(tt.in); got != tt.fs {
			t.Errorf("FilesystemName(%q) = %q, want %q", tt.in, got, tt.fs)
		}
	}
}
