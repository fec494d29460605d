package install

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
)

// member is one archive entry, relative to the target directory.
type member struct {
	path string // slash-separated
	dir  bool
	mode fs.FileMode
	data []byte
}

// wheelMembers returns every entry of a wheel, unfiltered.
func wheelMembers(data []byte) ([]member, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIntegrity, err, "open wheel")
	}

	members := make([]member, 0, len(zr.File))
	for _, f := range zr.File {
		if err := errors.ValidateArchivePath(f.Name); err != nil {
			return nil, err
		}
		p := path.Clean(f.Name)
		if f.FileInfo().IsDir() {
			members = append(members, member{path: p, dir: true})
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeIntegrity, err, "read %s", f.Name)
		}
		members = append(members, member{path: p, mode: f.Mode().Perm(), data: body})
	}
	return members, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sdistMembers returns the entries of a source tarball that belong to the
// package, with the "name-version/" wrapper (and a "src/" layout directory)
// stripped, plus the PKG-INFO header when the archive has one.
//
// An entry belongs to the package when the component below the wrapper is
// the package's filesystem name, or that name followed by "." (single-module
// packages and extension modules). Everything else is logged and skipped.
func sdistMembers(data []byte, name string, logger *log.Logger) ([]member, site.Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIntegrity, err, "open source archive")
	}
	defer gz.Close()

	fsName := requirement.FilesystemName(name)
	var (
		members []member
		pkgInfo site.Manifest
	)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeIntegrity, err, "read source archive")
		}
		raw := strings.TrimPrefix(hdr.Name, "./")
		if raw == "" || raw == "." {
			continue
		}
		if err := errors.ValidateArchivePath(raw); err != nil {
			return nil, nil, err
		}
		parts := strings.Split(path.Clean(raw), "/")

		if len(parts) == 2 && parts[1] == "PKG-INFO" && hdr.Typeflag == tar.TypeReg {
			if m, err := site.ParseManifest(tr); err == nil {
				pkgInfo = m
			}
			continue
		}

		rel, ok := packagePath(parts, fsName)
		if !ok {
			logger.Debug("ignored sdist member", "path", raw)
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			members = append(members, member{path: rel, dir: true})
		case tar.TypeReg:
			body, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, errors.Wrap(errors.ErrCodeIntegrity, err, "read %s", raw)
			}
			members = append(members, member{path: rel, mode: fs.FileMode(hdr.Mode).Perm(), data: body})
		default:
			logger.Debug("ignored sdist member", "path", raw, "type", string(hdr.Typeflag))
		}
	}
	return members, pkgInfo, nil
}

// packagePath maps "libx-1.0/libx/core.py" or "libx-1.0/src/libx/core.py"
// to "libx/core.py".
func packagePath(parts []string, fsName string) (string, bool) {
	if len(parts) < 2 {
		return "", false
	}
	rest := parts[1:]
	if rest[0] == "src" && len(rest) > 1 {
		rest = rest[1:]
	}
	top := strings.ToLower(rest[0])
	if strings.HasSuffix(top, site.DistInfoSuffix) || strings.HasSuffix(top, site.EggInfoSuffix) {
		return "", false
	}
	if top != fsName && !strings.HasPrefix(top, fsName+".") {
		return "", false
	}
	return strings.Join(rest, "/"), true
}

// writeMembers materializes members under root. Files are written with
// their archived permissions, defaulting to 0644.
func writeMembers(root string, members []member) error {
	for _, m := range members {
		full := filepath.Join(root, filepath.FromSlash(m.path))
		if m.dir {
			if err := os.MkdirAll(full, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeFilesystem, err, "create %s", full)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "create %s", filepath.Dir(full))
		}
		mode := m.mode
		if mode == 0 {
			mode = 0o644
		}
		if err := os.WriteFile(full, m.data, mode); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "write %s", full)
		}
	}
	return nil
}

// filePaths lists the non-directory member paths.
func filePaths(members []member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if !m.dir {
			out = append(out, m.path)
		}
	}
	return out
}
