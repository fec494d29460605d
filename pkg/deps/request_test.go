package deps

import (
	"testing"

	"github.com/matzehuels/pipios/pkg/errors"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		version string
		set     string
		extras  int
	}{
		{in: "flask", name: "flask"},
		{in: "Flask==2.0.1", name: "Flask", version: "2.0.1"},
		{in: "flask[async,dotenv]", name: "flask", extras: 2},
		{in: "flask>=2,<3", name: "flask", set: ">=2,<3"},
		{in: "flask==2.*", name: "flask", set: "==2.*"},
		{in: "  requests (>=2.28)  ", name: "requests", set: ">=2.28"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req, err := ParseRequest(tt.in)
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if req.Name != tt.name || req.Version != tt.version {
				t.Errorf("got name=%q version=%q, want %q %q", req.Name, req.Version, tt.name, tt.version)
			}
			if got := req.Specifiers.String(); got != tt.set {
				t.Errorf("specifiers = %q, want %q", got, tt.set)
			}
			if len(req.Extras) != tt.extras {
				t.Errorf("extras = %v, want %d", req.Extras, tt.extras)
			}
		})
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		in   string
		code errors.Code
	}{
		{"", errors.ErrCodeInvalidInput},
		{`six ; python_version < "3"`, errors.ErrCodeInvalidInput},
		{"pkg @ https://example.com/pkg.whl", errors.ErrCodeSpecifierParse},
		{"flask >>2", errors.ErrCodeSpecifierParse},
		{"../evil", errors.ErrCodeInvalidPackage},
		{"a/b==1.0", errors.ErrCodeInvalidPackage},
		{"-flask", errors.ErrCodeInvalidPackage},
		{"[x]>=1", errors.ErrCodeInvalidPackage},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseRequest(tt.in)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRequestString(t *testing.T) {
	req, err := ParseRequest("demo[x]==1.0")
	if err != nil {
		t.Fatal(err)
	}
	if got := req.String(); got != "demo[x]==1.0" {
		t.Errorf("String() = %q", got)
	}
}
