package python

import (
	"bufio"
	"os"
	"strings"

	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// Requirements reads requirements.txt files.
type Requirements struct{}

func (r *Requirements) Type() string { return "requirements.txt" }

func (r *Requirements) Supports(name string) bool {
	return name == "requirements.txt" ||
		(strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt"))
}

// Parse returns one request per requirement line whose predicates hold in
// env. Comments, pip options, editable installs and URLs are skipped.
// Repeated names keep their first occurrence.
func (r *Requirements) Parse(path string, env requirement.Environment) ([]deps.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "open %s", path)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var result []deps.Request

	scanner := bufio.NewScanner(f)
	lineNo := 0
	var pending strings.Builder
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.HasSuffix(text, `\`) {
			pending.WriteString(strings.TrimSuffix(text, `\`))
			continue
		}
		pending.WriteString(text)
		line := stripComment(pending.String())
		pending.Reset()

		if line == "" || line[0] == '-' {
			continue
		}
		if strings.Contains(line, "://") || strings.HasPrefix(line, "git+") {
			continue
		}

		dep, err := requirement.ParseLine(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSpecifierParse, err, "%s:%d", path, lineNo)
		}
		if !dep.Applies(env) {
			continue
		}
		body, _, _ := strings.Cut(line, ";")
		req, err := deps.ParseRequest(body)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSpecifierParse, err, "%s:%d", path, lineNo)
		}
		if name := dep.Canonical(); !seen[name] {
			seen[name] = true
			result = append(result, req)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", path)
	}
	return result, nil
}

// stripComment drops a trailing "#" comment. A "#" only starts a comment at
// the beginning of the line or after whitespace.
func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i])
		}
	}
	return line
}
