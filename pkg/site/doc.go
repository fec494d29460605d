// Package site indexes the packages installed in a target directory.
//
// The index never caches: every call re-scans the directory, since other
// processes (or the user) may change it between calls. A package counts as
// installed when the target directory holds either
//
//   - a metadata directory "<name>-<version>.dist-info" (or ".egg-info")
//     whose name normalizes to the package name, or
//   - a bare entry named exactly after the normalized package name
//     ("six.py" is accepted for single-module distributions)
//
// unless a partial-install marker ".pipios-<name>.partial" is present, which
// the installer writes before extracting and removes on success. A package
// with a marker is reported as not installed, but [Index.Lookup] still returns
// its [Record] so the stale files can be deleted before reinstalling.
//
// Metadata files (METADATA, PKG-INFO) are parsed as a block of "Key: value"
// lines; see [ParseManifest].
package site
