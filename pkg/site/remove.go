package site

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// PartialMarker returns the marker filename for an in-progress install.
func PartialMarker(name string) string {
	return ".pipios-" + requirement.FilesystemName(name) + ".partial"
}

// MarkPartial records that name is being installed and will own paths.
// The marker survives a crash, so the next run deletes the leftovers.
func (ix *Index) MarkPartial(name string, paths []string) error {
	if err := os.MkdirAll(ix.root, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "create %s", ix.root)
	}
	data := strings.Join(paths, "\n") + "\n"
	marker := filepath.Join(ix.root, PartialMarker(name))
	if err := os.WriteFile(marker, []byte(data), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "write %s", marker)
	}
	return nil
}

// ClearPartial removes the marker written by [Index.MarkPartial].
func (ix *Index) ClearPartial(name string) error {
	marker := filepath.Join(ix.root, PartialMarker(name))
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "remove %s", marker)
	}
	return nil
}

// removeAll is swapped out by tests to interrupt a removal.
var removeAll = os.RemoveAll

// Remove deletes every path rec owns, deepest first, then prunes directories
// the removal left empty. A partial marker listing the paths is written
// before anything is deleted, so an interrupted removal is reported as an
// interrupted install rather than a complete one. Metadata directories go
// after the files they describe and the marker goes last.
func (ix *Index) Remove(rec *Record) error {
	if rec == nil {
		return nil
	}
	marker := PartialMarker(rec.Name)
	paths := make([]string, 0, len(rec.Paths))
	hasMarker := false
	for _, p := range rec.Paths {
		if strings.HasPrefix(p, ".pipios-") && strings.HasSuffix(p, ".partial") {
			marker, hasMarker = p, true
			continue
		}
		paths = append(paths, p)
	}
	if !hasMarker && rec.Name != "" && len(paths) > 0 {
		if err := ix.MarkPartial(rec.Name, paths); err != nil {
			return err
		}
		hasMarker = true
	}
	sort.Slice(paths, func(i, j int) bool {
		mi, mj := isMetadataPath(paths[i]), isMetadataPath(paths[j])
		if mi != mj {
			return mj
		}
		di, dj := strings.Count(paths[i], "/"), strings.Count(paths[j], "/")
		if di != dj {
			return di > dj
		}
		return paths[i] < paths[j]
	})

	for _, p := range paths {
		full := filepath.Join(ix.root, filepath.FromSlash(p))
		if err := removeAll(full); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "remove %s", full)
		}
		ix.pruneEmpty(filepath.Dir(full))
	}
	if hasMarker {
		full := filepath.Join(ix.root, marker)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "remove %s", full)
		}
	}
	return nil
}

// isMetadataPath reports whether p lives in a .dist-info or .egg-info
// directory.
func isMetadataPath(p string) bool {
	top, _, _ := strings.Cut(p, "/")
	return strings.HasSuffix(top, DistInfoSuffix) || strings.HasSuffix(top, EggInfoSuffix)
}

// pruneEmpty removes dir and its parents while they are empty, stopping at
// the root.
func (ix *Index) pruneEmpty(dir string) {
	root := filepath.Clean(ix.root)
	for dir = filepath.Clean(dir); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
	}
}

// Uninstall removes name. It returns the removed record, or nil if nothing of
// name was present.
func (ix *Index) Uninstall(name string) (*Record, error) {
	rec, err := ix.Lookup(name)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := ix.Remove(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Size returns the number of files and total bytes rec owns on disk.
func (ix *Index) Size(rec *Record) (files int, bytes int64, err error) {
	if rec == nil {
		return 0, 0, nil
	}
	seen := make(map[string]bool)
	for _, p := range rec.Paths {
		full := filepath.Join(ix.root, filepath.FromSlash(p))
		walkErr := filepath.WalkDir(full, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() || seen[path] {
				return nil
			}
			seen[path] = true
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files++
			bytes += info.Size()
			return nil
		})
		if walkErr != nil {
			return files, bytes, errors.Wrap(errors.ErrCodeFilesystem, walkErr, "measure %s", full)
		}
	}
	return files, bytes, nil
}
