package site

import (
	"bufio"
	"io"
	"strings"
)

// Manifest is the header block of a METADATA or PKG-INFO file.
// Keys are stored lowercase; repeated keys keep every value in file order.
type Manifest map[string][]string

// Manifest keys used by the installer.
const (
	KeyName           = "name"
	KeyVersion        = "version"
	KeySummary        = "summary"
	KeyRequiresDist   = "requires-dist"
	KeyRequiresPython = "requires-python"
	KeyProvidesExtra  = "provides-extra"
)

// Get returns the first value for key, or "".
func (m Manifest) Get(key string) string {
	if v := m[strings.ToLower(key)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// All returns every value for key.
func (m Manifest) All(key string) []string {
	return m[strings.ToLower(key)]
}

// ParseManifest reads "Key: value" lines up to the first blank line. Lines
// starting with whitespace continue the previous value; lines without a colon
// are skipped.
func ParseManifest(r io.Reader) (Manifest, error) {
	m := make(Manifest)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && last != "" {
			vals := m[last]
			vals[len(vals)-1] += "\n" + strings.TrimSpace(line)
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		last = strings.ToLower(strings.TrimSpace(key))
		m[last] = append(m[last], strings.TrimSpace(value))
	}
	return m, sc.Err()
}

// WriteManifest writes m back in header form, with keys in the given order
// followed by nothing else. Keys absent from m are skipped.
func WriteManifest(w io.Writer, m Manifest, keys ...string) error {
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		for _, v := range m.All(k) {
			if _, err := bw.WriteString(headerCase(k) + ": " + v + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// headerCase turns "requires-dist" into "Requires-Dist".
func headerCase(key string) string {
	parts := strings.Split(key, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}
