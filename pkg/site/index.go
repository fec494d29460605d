package site

import (
	"bufio"
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// Metadata directory suffixes.
const (
	DistInfoSuffix = ".dist-info"
	EggInfoSuffix  = ".egg-info"
)

// Record is one installed package.
type Record struct {
	Name        string   // Display name from the manifest, or the on-disk name
	Version     string   // Empty if no metadata directory was found
	Summary     string   // From the manifest
	Requires    []string // Raw dependency lines from the manifest
	Manifest    Manifest // Full manifest, nil without metadata
	MetadataDir string   // Metadata directory, relative to the target root
	Paths       []string // Owned paths, slash-separated and relative to the target root
	Partial     bool     // An interrupted install left a marker behind
}

// Index answers installed-package queries for one target directory.
// It holds no state besides the root and is safe for concurrent use.
type Index struct {
	root string
}

// NewIndex returns an index over root.
func NewIndex(root string) *Index {
	return &Index{root: root}
}

// Root returns the target directory.
func (ix *Index) Root() string { return ix.root }

// IsInstalled reports whether a complete install of name is present.
func (ix *Index) IsInstalled(name string) (bool, error) {
	rec, err := ix.Lookup(name)
	if err != nil {
		return false, err
	}
	return rec != nil && !rec.Partial, nil
}

// Lookup returns the record for name, or nil if nothing of it is present.
// Records of interrupted installs are returned with Partial set.
func (ix *Index) Lookup(name string) (*Record, error) {
	entries, err := ix.scan()
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return ix.lookup(entries, requirement.FilesystemName(name))
}

// List returns every package that has a metadata directory, sorted by
// normalized name.
func (ix *Index) List() ([]Record, error) {
	entries, err := ix.scan()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Record
	for _, e := range entries {
		fsName, _, ok := splitMetadataDir(e.Name())
		if !ok || seen[fsName] {
			continue
		}
		seen[fsName] = true
		rec, err := ix.lookup(entries, fsName)
		if err != nil {
			return nil, err
		}
		if rec != nil && !rec.Partial {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return requirement.FilesystemName(out[i].Name) < requirement.FilesystemName(out[j].Name)
	})
	return out, nil
}

// scan lists the root. A missing root is empty; permission failures are
// FILESYSTEM errors; any other read failure counts as empty.
func (ix *Index) scan() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(ix.root)
	switch {
	case err == nil:
		return entries, nil
	case errors.IsPermission(err):
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "scan %s", ix.root)
	default:
		return nil, nil
	}
}

func (ix *Index) lookup(entries []fs.DirEntry, fsName string) (*Record, error) {
	rec := &Record{}
	found := false
	owned := make(map[string]bool)

	for _, e := range entries {
		entry := e.Name()
		switch {
		case e.IsDir() && isMetadataFor(entry, fsName):
			if rec.MetadataDir != "" && strings.HasSuffix(rec.MetadataDir, DistInfoSuffix) {
				continue
			}
			if err := ix.readMetadata(rec, entry); err != nil {
				return nil, err
			}
			found = true
		case strings.EqualFold(entry, fsName) || strings.EqualFold(entry, fsName+".py"):
			owned[entry] = true
			if rec.Name == "" {
				rec.Name = strings.TrimSuffix(entry, ".py")
			}
			found = true
		case entry == PartialMarker(fsName):
			rec.Partial = true
			paths, err := ix.readPartial(entry)
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				owned[p] = true
			}
			owned[entry] = true
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	if rec.MetadataDir != "" {
		owned[rec.MetadataDir] = true
		recorded, err := ix.readRecordFile(rec.MetadataDir)
		if err != nil {
			return nil, err
		}
		for _, p := range recorded {
			owned[p] = true
		}
	}
	for p := range owned {
		rec.Paths = append(rec.Paths, p)
	}
	sort.Strings(rec.Paths)
	return rec, nil
}

func (ix *Index) readMetadata(rec *Record, dir string) error {
	rec.MetadataDir = dir
	_, v, _ := splitMetadataDir(dir)
	rec.Version = v

	for _, file := range []string{"METADATA", "PKG-INFO"} {
		f, err := os.Open(filepath.Join(ix.root, dir, file))
		if err != nil {
			if errors.IsPermission(err) {
				return errors.Wrap(errors.ErrCodeFilesystem, err, "read %s/%s", dir, file)
			}
			continue
		}
		m, err := ParseManifest(f)
		f.Close()
		if err != nil {
			continue
		}
		rec.Manifest = m
		if n := m.Get(KeyName); n != "" {
			rec.Name = n
		}
		if v := m.Get(KeyVersion); v != "" {
			rec.Version = v
		}
		rec.Summary = m.Get(KeySummary)
		rec.Requires = m.All(KeyRequiresDist)
		break
	}
	if rec.Name == "" {
		rec.Name, _, _ = splitMetadataDir(dir)
	}
	return nil
}

// readRecordFile returns the paths listed in a dist-info RECORD that stay
// inside the target root.
func (ix *Index) readRecordFile(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(ix.root, dir, "RECORD"))
	if err != nil {
		if errors.IsPermission(err) {
			return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read %s/RECORD", dir)
		}
		return nil, nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var paths []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A damaged RECORD still tells us about the rows read so far.
			break
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if p, ok := cleanRelative(row[0]); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (ix *Index) readPartial(marker string) ([]string, error) {
	f, err := os.Open(filepath.Join(ix.root, marker))
	if err != nil {
		if errors.IsPermission(err) {
			return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", marker)
		}
		return nil, nil
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if p, ok := cleanRelative(sc.Text()); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// cleanRelative normalizes a slash path and rejects paths leaving the root.
func cleanRelative(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", false
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// splitMetadataDir splits "Foo_Bar-1.2.dist-info" into ("foo_bar", "1.2").
// Egg-info names may carry a python tag: "foo-1.2-py3.10.egg-info".
func splitMetadataDir(entry string) (fsName, version string, ok bool) {
	var stem string
	switch {
	case strings.HasSuffix(entry, DistInfoSuffix):
		stem = strings.TrimSuffix(entry, DistInfoSuffix)
	case strings.HasSuffix(entry, EggInfoSuffix):
		stem = strings.TrimSuffix(entry, EggInfoSuffix)
	default:
		return "", "", false
	}
	for i := 0; i < len(stem); i++ {
		if stem[i] != '-' || i+1 >= len(stem) || !isDigit(stem[i+1]) {
			continue
		}
		version, _, _ = strings.Cut(stem[i+1:], "-")
		return requirement.FilesystemName(stem[:i]), version, true
	}
	// "foo.egg-info" without a version
	return requirement.FilesystemName(stem), "", stem != ""
}

func isMetadataFor(entry, fsName string) bool {
	n, _, ok := splitMetadataDir(entry)
	return ok && n == fsName
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
