// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool implements the content-addressable workspace every command
// reads and writes through. A Pool resolves logical identity-keyed paths,
// enforces the closed FILETYPE extension set, and applies the global cache
// policy uniformly to every reader/writer, wrapping a billy.Filesystem
// behind a small typed interface instead of raw path concatenation.
package pool

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

// Relationship is the top-level directory a Pool entry is filed under.
type Relationship string

const (
	Userland Relationship = "userland"
	Debian   Relationship = "debian"
	Stats    Relationship = "stats"
	SessionR Relationship = "session"
)

// FileType is a member of the closed Pool artifact extension set.
type FileType string

const (
	ALIENSRC             FileType = "aliensrc"
	TINFOILHAT           FileType = "tinfoilhat.json"
	ALIENMATCHER         FileType = "alienmatcher.json"
	SNAPMATCH            FileType = "snapmatch.json"
	SCANCODE_JSON        FileType = "scancode.json"
	SCANCODE_SPDX        FileType = "scancode.spdx"
	DELTACODE            FileType = "deltacode.json"
	DEBIAN_SPDX          FileType = "debian.spdx"
	DEBIAN_COPYRIGHT_RAW FileType = "copyright"
	ALIEN_SPDX           FileType = "alien.spdx"
	FOSSY_JSON           FileType = "fossy.json"
	FINAL_SPDX           FileType = "final.spdx"
	HARVEST              FileType = "harvest.json"
	CVE_HARVEST          FileType = "cve.json"
	SESSION_JSON         FileType = "session.json"
)

// knownFileTypes is the closed set resolve() validates ext against.
var knownFileTypes = map[FileType]bool{
	ALIENSRC: true, TINFOILHAT: true, ALIENMATCHER: true, SNAPMATCH: true,
	SCANCODE_JSON: true, SCANCODE_SPDX: true, DELTACODE: true, DEBIAN_SPDX: true,
	DEBIAN_COPYRIGHT_RAW: true, ALIEN_SPDX: true, FOSSY_JSON: true, FINAL_SPDX: true,
	HARVEST: true, CVE_HARVEST: true, SESSION_JSON: true,
}

// prerequisites lists, for each produced FileType, the FileTypes that must
// already exist for the same identity before a write is allowed.
// FileTypes absent from this map have no
// prerequisite.
var prerequisites = map[FileType][]FileType{
	ALIENMATCHER:  {ALIENSRC},
	SNAPMATCH:     {ALIENSRC},
	SCANCODE_JSON: {ALIENSRC},
	DELTACODE:     {SCANCODE_JSON},
	DEBIAN_SPDX:   {DEBIAN_COPYRIGHT_RAW},
	ALIEN_SPDX:    {DELTACODE, DEBIAN_SPDX},
	FOSSY_JSON:    {ALIEN_SPDX},
	FINAL_SPDX:    {FOSSY_JSON},
}

// IfExists governs write collision behavior.
type IfExists int

const (
	Fail IfExists = iota
	Overwrite
)

// Pool is the disk-backed, identity-keyed artifact store. Pool does no
// in-process locking: its existence/cache checks are not synchronized
// between concurrent callers. Cross-process safety for mutating operations
// is the caller's responsibility, via the session-lock / file-lock scheme.
type Pool struct {
	fs          billy.Filesystem
	cacheOn     bool
	ignoreCache bool
	mirror      *GCSMirror
}

// New creates a Pool rooted at root on the local filesystem.
func New(root string, cacheOn bool) *Pool {
	return &Pool{fs: osfs.New(root), cacheOn: cacheOn}
}

// NewFromFilesystem creates a Pool over an arbitrary billy.Filesystem,
// exercised by tests with memfs. Production code opens its Pool with New
// and pairs it with WithGCSMirror for off-host durability.
func NewFromFilesystem(bfs billy.Filesystem, cacheOn bool) *Pool {
	return &Pool{fs: bfs, cacheOn: cacheOn}
}

// WithIgnoreCache returns a shallow copy of p with the per-command
// --ignore-cache override applied.
func (p *Pool) WithIgnoreCache(ignore bool) *Pool {
	cp := *p
	cp.ignoreCache = ignore
	return &cp
}

func (p *Pool) cacheActive() bool {
	return p.cacheOn && !p.ignoreCache
}

// Resolve computes the logical path for an identity and FileType, optionally
// qualified by a basename differing from name (e.g. an .aliensrc's own
// filename). ext must be one of the closed FileType set.
func (p *Pool) Resolve(rel Relationship, name, version string, basename string, ext FileType) (string, error) {
	if !knownFileTypes[ext] {
		return "", errors.Wrapf(a4ferr.ErrConfig, "unknown pool filetype %q", ext)
	}
	if basename == "" {
		basename = name
	}
	return filepath.Join(string(rel), name, version, basename+"."+string(ext)), nil
}

// Exists reports whether path exists and is non-empty.
func (p *Pool) Exists(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && info.Size() > 0
}

// Read returns the bytes at path. Read does not consult the cache policy:
// callers decide whether to read at all via CachedRead.
func (p *Pool) Read(path string) ([]byte, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(a4ferr.ErrNotFound, "pool path %s", path)
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CachedRead returns (bytes, true) if path exists, is non-empty, and the
// cache policy is active; otherwise (nil, false), signaling the caller must
// produce and Write the artifact itself.
func (p *Pool) CachedRead(path string) ([]byte, bool) {
	if !p.cacheActive() || !p.Exists(path) {
		return nil, false
	}
	b, err := p.Read(path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Write stores data at path honoring ifExists, and enforces the
// prerequisite-FileType invariant when ext is recognizable from path's
// suffix.
func (p *Pool) Write(path string, data []byte, ifExists IfExists) error {
	if ifExists == Fail && p.Exists(path) {
		return errors.Wrapf(a4ferr.ErrDuplicatePackage, "pool path %s already exists", path)
	}
	if err := p.checkPrerequisites(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	f, err := p.fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if p.mirror != nil {
		if err := p.mirror.Put(context.Background(), path, data); err != nil {
			return errors.Wrapf(err, "mirroring %s", path)
		}
	}
	return nil
}

// WriteIfAbsent writes data to path only if the cache policy permits
// (artifact missing, empty, or cache disabled); it returns (written bool,
// err error) so callers can distinguish "already had it" from "just wrote
// it" for logging.
func (p *Pool) WriteIfAbsent(path string, produce func() ([]byte, error)) (written bool, err error) {
	if b, ok := p.CachedRead(path); ok {
		_ = b
		return false, nil
	}
	data, err := produce()
	if err != nil {
		return false, err
	}
	if err := p.Write(path, data, Overwrite); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Pool) checkPrerequisites(path string) error {
	ext := extOf(path)
	deps, ok := prerequisites[ext]
	if !ok {
		return nil
	}
	rel, name, version, _, _ := splitPath(path)
	for _, dep := range deps {
		depPath, err := p.Resolve(rel, name, version, name, dep)
		if err != nil {
			return err
		}
		if !p.Exists(depPath) {
			return errors.Wrapf(a4ferr.ErrCorruptInput, "missing prerequisite %s for %s", dep, path)
		}
	}
	return nil
}

// extOf extracts the FileType suffix from a logical Pool path.
func extOf(path string) FileType {
	base := filepath.Base(path)
	idx := strings.Index(base, ".")
	if idx < 0 {
		return ""
	}
	return FileType(base[idx+1:])
}

// splitPath decomposes a <relationship>/<name>/<version>/<basename>.<ext>
// logical path back into its components.
func splitPath(path string) (rel Relationship, name, version, basename string, ext FileType) {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) < 4 {
		return "", "", "", "", ""
	}
	rel = Relationship(parts[0])
	name = parts[1]
	version = parts[2]
	file := parts[3]
	idx := strings.Index(file, ".")
	if idx < 0 {
		basename = file
		return
	}
	basename = file[:idx]
	ext = FileType(file[idx+1:])
	return
}

// Filesystem exposes the Pool's underlying billy.Filesystem for
// collaborators that need a filesystem-addressed sidecar store outside the
// identity-keyed FileType set (e.g. cvecheck's yearly NVD feed cache).
func (p *Pool) Filesystem() billy.Filesystem {
	return p.fs
}

// Glob lists logical paths under the pool matching a shell pattern, used by
// Session.populate to discover known (name, version) pairs.
func (p *Pool) Glob(pattern string) ([]string, error) {
	matches, err := billyGlob(p.fs, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "globbing %s", pattern)
	}
	return matches, nil
}

// billyGlob is a small glob walk over a billy.Filesystem, since billy has no
// built-in Glob (unlike os). It walks from the pattern's non-wildcard
// prefix directory and matches each remaining segment with filepath.Match.
func billyGlob(bfs billy.Filesystem, pattern string) ([]string, error) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	results := []string{""}
	for _, seg := range segments {
		var next []string
		for _, base := range results {
			entries, err := bfs.ReadDir(base)
			if err != nil {
				continue
			}
			for _, e := range entries {
				ok, err := filepath.Match(seg, e.Name())
				if err != nil {
					return nil, err
				}
				if ok {
					next = append(next, filepath.Join(base, e.Name()))
				}
			}
		}
		results = next
		if len(results) == 0 {
			break
		}
	}
	return results, nil
}
