package install

import (
	"bytes"
	"encoding/csv"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pipios/pkg/cache"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
)

// InstallerName is written to the INSTALLER file of every install.
const InstallerName = "pipios"

const keyMetadataVersion = "metadata-version"

var metadataKeys = []string{
	keyMetadataVersion,
	site.KeyName,
	site.KeyVersion,
	site.KeySummary,
	site.KeyRequiresPython,
	site.KeyRequiresDist,
	site.KeyProvidesExtra,
}

// distInfoDir returns the metadata directory name for a release.
func distInfoDir(name, version string) string {
	return requirement.FilesystemName(name) + "-" + version + site.DistInfoSuffix
}

// wheelMetadataDir returns the dist-info directory shipped in a wheel.
func wheelMetadataDir(members []member) string {
	for _, m := range members {
		top, _, _ := strings.Cut(m.path, "/")
		if strings.HasSuffix(top, site.DistInfoSuffix) {
			return top
		}
	}
	return ""
}

// metadataMembers builds METADATA, INSTALLER and RECORD for a source
// install. RECORD lists every file in files plus the metadata itself.
func metadataMembers(dir, name, version, summary string, pkgInfo site.Manifest, files []member) ([]member, error) {
	m := site.Manifest{}
	for k, v := range pkgInfo {
		m[k] = v
	}
	set := func(key, value string) {
		if value != "" && m.Get(key) == "" {
			m[key] = []string{value}
		}
	}
	set(keyMetadataVersion, "2.1")
	set(site.KeyName, name)
	set(site.KeySummary, summary)
	m[site.KeyVersion] = []string{version}

	var meta bytes.Buffer
	if err := site.WriteManifest(&meta, m, metadataKeys...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render METADATA")
	}
	out := []member{
		{path: dir, dir: true},
		{path: path.Join(dir, "METADATA"), data: meta.Bytes()},
		{path: path.Join(dir, "INSTALLER"), data: []byte(InstallerName + "\n")},
	}

	record, err := renderRecord(slices.Concat(files, out[1:]), path.Join(dir, "RECORD"))
	if err != nil {
		return nil, err
	}
	return append(out, member{path: path.Join(dir, "RECORD"), data: record}), nil
}

// renderRecord renders RECORD rows (path, sha256=digest, size) for files,
// followed by the unhashed row for RECORD itself.
func renderRecord(files []member, self string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, f := range files {
		if f.dir {
			continue
		}
		row := []string{f.path, cache.RecordDigest(f.data), strconv.Itoa(len(f.data))}
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render RECORD")
		}
	}
	if err := w.Write([]string{self, "", ""}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render RECORD")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render RECORD")
	}
	return buf.Bytes(), nil
}

// markInstaller writes INSTALLER into a wheel's dist-info directory and
// appends it to RECORD so the index owns it.
func markInstaller(root, dir string) error {
	if dir == "" {
		return nil
	}
	rel := path.Join(dir, "INSTALLER")
	data := []byte(InstallerName + "\n")
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "write %s", full)
	}

	record := filepath.Join(root, filepath.FromSlash(dir), "RECORD")
	f, err := os.OpenFile(record, os.O_APPEND|os.O_WRONLY, 0o644)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "open %s", record)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{rel, cache.RecordDigest(data), strconv.Itoa(len(data))})
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "append %s", record)
	}
	return nil
}
