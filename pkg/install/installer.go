package install

import (
	"cmp"
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/cache"
	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/observability"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
)

// Downloader fetches artifact bytes. [integrations.Client] satisfies it.
//
// [integrations.Client]: github.com/matzehuels/pipios/pkg/integrations.Client
type Downloader interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Option configures an [Installer].
type Option func(*Installer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(in *Installer) {
		if l != nil {
			in.logger = l
		}
	}
}

// Installer writes plan entries into a target directory.
//
// Work on a given package name is serialized, so concurrent callers never
// extract over each other. It is safe for concurrent use.
type Installer struct {
	index  *site.Index
	dl     Downloader
	logger *log.Logger
	locks  *namedLocks
}

// New creates an Installer for the index's target directory.
func New(index *site.Index, dl Downloader, opts ...Option) *Installer {
	in := &Installer{
		index:  index,
		dl:     dl,
		logger: log.New(io.Discard),
		locks:  newNamedLocks(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Install installs every entry with [deps.StatusInstall] in the given order
// and returns their records. It stops at the first failure, returning the
// records installed so far.
func (in *Installer) Install(ctx context.Context, entries []deps.Entry) ([]site.Record, error) {
	var out []site.Record
	for _, e := range entries {
		if e.Status != deps.StatusInstall {
			continue
		}
		rec, err := in.InstallEntry(ctx, e)
		if err != nil {
			return out, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// InstallEntry downloads and unpacks one entry.
//
// The artifact is downloaded and checked against its digest first. Any
// previous install of the name is then removed, a partial-install marker
// listing the new files is written, the files are extracted, and the marker
// is cleared. A crash in between leaves the marker for the next run, which
// reports the package as not installed and deletes the listed files.
func (in *Installer) InstallEntry(ctx context.Context, e deps.Entry) (rec *site.Record, err error) {
	hooks := observability.Pipeline()
	hooks.OnInstallStart(ctx, e.Name, e.Version)
	start := time.Now()
	defer func() {
		files := 0
		if rec != nil {
			files = len(rec.Paths)
		}
		hooks.OnInstallComplete(ctx, e.Name, e.Version, files, time.Since(start), err)
	}()

	a := e.Artifact
	if a.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %s has no artifact to install", e.Name, e.Version)
	}
	if !a.IsArchiveSupported() {
		return nil, errors.New(errors.ErrCodeIncompatible, "unsupported archive %s", a.Filename)
	}

	unlock := in.locks.Lock(requirement.FilesystemName(e.Name))
	defer unlock()

	in.logger.Debug("downloading", "file", a.Filename, "url", a.URL)
	data, err := in.dl.GetBytes(ctx, a.URL)
	if err != nil {
		return nil, err
	}
	if err := verifyDigest(a, data); err != nil {
		return nil, err
	}

	members, owned, err := in.unpack(e, data)
	if err != nil {
		return nil, err
	}

	prior, err := in.index.Lookup(e.Name)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		in.logger.Debug("removing previous install", "name", e.Display, "version", prior.Version, "paths", len(prior.Paths))
		if err := in.index.Remove(prior); err != nil {
			return nil, err
		}
	}

	if err := in.index.MarkPartial(e.Name, owned); err != nil {
		return nil, err
	}
	if err := writeMembers(in.index.Root(), members); err != nil {
		in.cleanup(e.Name)
		return nil, err
	}
	if a.Kind == artifact.KindBinary {
		if err := markInstaller(in.index.Root(), wheelMetadataDir(members)); err != nil {
			in.cleanup(e.Name)
			return nil, err
		}
	}
	if err := in.index.ClearPartial(e.Name); err != nil {
		return nil, err
	}

	rec, err = in.index.Lookup(e.Name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New(errors.ErrCodeInternal, "%s not visible after install", e.Name)
	}
	in.logger.Info("installed", "name", e.Display, "version", e.Version, "files", len(filePaths(members)))
	return rec, nil
}

// unpack reads the archive into members and returns them with the paths the
// install will own.
func (in *Installer) unpack(e deps.Entry, data []byte) ([]member, []string, error) {
	a := e.Artifact
	if a.Kind == artifact.KindBinary {
		members, err := wheelMembers(data)
		if err != nil {
			return nil, nil, err
		}
		owned := filePaths(members)
		if dir := wheelMetadataDir(members); dir != "" {
			owned = append(owned, dir)
		}
		return members, owned, nil
	}

	files, pkgInfo, err := sdistMembers(data, e.Name, in.logger)
	if err != nil {
		return nil, nil, err
	}
	if len(filePaths(files)) == 0 {
		in.logger.Warn("source archive has no files for package", "name", e.Display, "file", a.Filename)
	}
	dir := distInfoDir(e.Name, e.Version)
	meta, err := metadataMembers(dir, cmp.Or(e.Display, e.Name), e.Version, e.Summary, pkgInfo, files)
	if err != nil {
		return nil, nil, err
	}
	members := slices.Concat(files, meta)
	return members, append(filePaths(members), dir), nil
}

// cleanup removes whatever a failed install left behind. The partial marker
// goes with it, so a failure here only leaves the marker for the next run.
func (in *Installer) cleanup(name string) {
	rec, err := in.index.Lookup(name)
	if err != nil || rec == nil {
		return
	}
	if err := in.index.Remove(rec); err != nil {
		in.logger.Warn("cleanup failed", "name", name, "err", err)
	}
}

// Uninstall removes name from the target directory and reports whether
// anything was removed.
func (in *Installer) Uninstall(ctx context.Context, name string) (removed bool, err error) {
	defer func() { observability.Pipeline().OnUninstall(ctx, name, removed, err) }()

	unlock := in.locks.Lock(requirement.FilesystemName(name))
	defer unlock()

	rec, err := in.index.Uninstall(name)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	in.logger.Info("uninstalled", "name", rec.Name, "version", rec.Version, "paths", len(rec.Paths))
	return true, nil
}

func verifyDigest(a artifact.Descriptor, data []byte) error {
	if a.SHA256 == "" {
		return nil
	}
	if got := cache.Hash(data); !strings.EqualFold(got, a.SHA256) {
		return errors.New(errors.ErrCodeIntegrity, "%s: sha256 %s, registry says %s", a.Filename, got, a.SHA256)
	}
	return nil
}
