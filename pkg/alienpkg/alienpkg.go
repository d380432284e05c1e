// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package alienpkg parses and validates .aliensrc tarballs, the uncompressed
// tar archives a Yocto/BitBake build emits in place of a package manager's
// metadata. Archive member iteration is a single sequential archive/tar.Reader
// walk over the archive's members in archive order, aliensrc.json first.
package alienpkg

import (
	"archive/tar"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

// File is one entry of a source_package's files[] array.
type File struct {
	Name           string   `json:"name"`
	Sha1Cksum      string   `json:"sha1_cksum"`
	GitSha1        *string  `json:"git_sha1"`
	SrcURI         string   `json:"src_uri"`
	FilesInArchive any      `json:"files_in_archive"` // int, or false/0 per §3
	Paths          []string `json:"paths,omitempty"`
}

// FilesInArchiveCount normalizes FilesInArchive (int | false | 0) to a count
// and whether the file is itself an archive at all ("false" means not an
// archive).
func (f File) FilesInArchiveCount() (count int, isArchive bool) {
	switch v := f.FilesInArchive.(type) {
	case bool:
		return 0, false
	case float64:
		return int(v), v > 0
	case int:
		return v, v > 0
	default:
		return 0, false
	}
}

// unpackDisabled reports whether src_uri carries an unpack=0 (or equivalent
// falsy) query parameter, which disqualifies a file from being the main
// internal archive.
func (f File) unpackDisabled() bool {
	idx := strings.Index(f.SrcURI, "?")
	if idx < 0 {
		return false
	}
	q, err := url.ParseQuery(f.SrcURI[idx+1:])
	if err != nil {
		return false
	}
	switch strings.ToLower(q.Get("unpack")) {
	case "0", "false", "no":
		return true
	}
	return false
}

// IsGit reports whether this file's src_uri was fetched over git.
func (f File) IsGit() bool {
	return strings.HasPrefix(f.SrcURI, "git://") || strings.HasPrefix(f.SrcURI, "git+")
}

// SourcePackage is the manifest body embedded in aliensrc.json.
type SourcePackage struct {
	Name     []string       `json:"name"`
	Version  string         `json:"version"`
	Manager  string         `json:"manager"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Files    []File         `json:"files"`
	Tags     []string       `json:"tags,omitempty"`
}

// Manifest is the top-level aliensrc.json document.
type Manifest struct {
	Version       int           `json:"version"`
	SourcePackage SourcePackage `json:"source_package"`
}

// AlienPackage is the parsed, immutable representation of an ingested
// .aliensrc tarball.
type AlienPackage struct {
	Manifest Manifest
	RawFiles map[string][]byte // archive member name -> contents, keyed by "files/<...>" path
}

// PrimaryName returns the first (highest priority) alias name.
func (a *AlienPackage) PrimaryName() string {
	if len(a.Manifest.SourcePackage.Name) == 0 {
		return ""
	}
	return a.Manifest.SourcePackage.Name[0]
}

// AlternativeNames returns every alias name after the primary.
func (a *AlienPackage) AlternativeNames() []string {
	if len(a.Manifest.SourcePackage.Name) <= 1 {
		return nil
	}
	return a.Manifest.SourcePackage.Name[1:]
}

// Version returns the package version string.
func (a *AlienPackage) Version() string {
	return a.Manifest.SourcePackage.Version
}

// MainInternalArchive selects, deterministically, the "main internal
// archive" file: among files whose files_in_archive is a
// positive integer, pick the one whose src_uri does not disable unpacking;
// ties broken by order of appearance in the manifest. If the chosen file's
// src_uri is git://, its git_sha1 becomes part of the canonical identity.
func (a *AlienPackage) MainInternalArchive() (File, bool) {
	for _, f := range a.Manifest.SourcePackage.Files {
		count, isArchive := f.FilesInArchiveCount()
		if !isArchive || count <= 0 {
			continue
		}
		if f.unpackDisabled() {
			continue
		}
		return f, true
	}
	return File{}, false
}

// Parse reads an uncompressed .aliensrc tar stream: the first member must be
// aliensrc.json; subsequent members are the files/ tree.
func Parse(r io.Reader) (*AlienPackage, error) {
	tr := tar.NewReader(r)
	ap := &AlienPackage{RawFiles: map[string][]byte{}}
	first := true
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "reading tar: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if first {
			if hdr.Name != "aliensrc.json" {
				return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "first archive member is %q, want aliensrc.json", hdr.Name)
			}
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, errors.Wrap(err, "reading aliensrc.json")
			}
			if err := json.Unmarshal(b, &ap.Manifest); err != nil {
				return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "parsing aliensrc.json: %v", err)
			}
			if err := validateManifest(&ap.Manifest); err != nil {
				return nil, err
			}
			first = false
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", hdr.Name)
		}
		ap.RawFiles[hdr.Name] = b
	}
	if first {
		return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "archive is empty, missing aliensrc.json")
	}
	return ap, nil
}

func validateManifest(m *Manifest) error {
	if m.Version != 1 {
		return errors.Wrapf(a4ferr.ErrCorruptInput, "unsupported manifest version %d", m.Version)
	}
	sp := m.SourcePackage
	if len(sp.Name) == 0 {
		return errors.Wrap(a4ferr.ErrCorruptInput, "source_package.name must have at least one entry")
	}
	if sp.Version == "" {
		return errors.Wrap(a4ferr.ErrCorruptInput, "source_package.version is required")
	}
	for _, f := range sp.Files {
		if len(f.Sha1Cksum) != 40 {
			return errors.Wrapf(a4ferr.ErrCorruptInput, "file %q has malformed sha1_cksum", f.Name)
		}
	}
	return nil
}
