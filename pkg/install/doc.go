// Package install downloads selected artifacts and unpacks them into the
// target directory.
//
// Binary archives (wheels) are zip files that are already laid out for the
// target directory; every member is extracted as is. Source archives are
// gzip-compressed tarballs wrapped in a "name-version/" directory; only the
// members belonging to the package are kept, the wrapper is stripped, and a
// dist-info directory with METADATA, INSTALLER and RECORD is synthesized so
// the installed index can find and later remove the package.
//
// Every member path is validated before anything is written, so an archive
// can never write outside the target directory.
package install
