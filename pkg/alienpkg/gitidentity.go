// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package alienpkg

import (
	"encoding/hex"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

// CanonicalIdentity is the value that uniquely names a package's main
// internal archive for matching and caching purposes: normally
// the archive's sha1_cksum, but when its src_uri is git:// the git_sha1
// takes over, since the tarball's own checksum is an artifact of however
// the fetcher packed the working tree rather than of the upstream content.
type CanonicalIdentity struct {
	File
	GitCommit *plumbing.Hash
}

// ResolveCanonicalIdentity validates and canonicalizes f's identity.
// A git:// file without a git_sha1, or with one that isn't a
// well-formed 40-hex-digit commit hash, is a4ferr.ErrCorruptInput.
func ResolveCanonicalIdentity(f File) (CanonicalIdentity, error) {
	if !f.IsGit() {
		return CanonicalIdentity{File: f}, nil
	}
	if f.GitSha1 == nil || *f.GitSha1 == "" {
		return CanonicalIdentity{}, errors.Wrapf(a4ferr.ErrCorruptInput, "file %q: src_uri is git:// but git_sha1 is missing", f.Name)
	}
	if !isHexSha1(*f.GitSha1) {
		return CanonicalIdentity{}, errors.Wrapf(a4ferr.ErrCorruptInput, "file %q: git_sha1 %q is not a valid commit hash", f.Name, *f.GitSha1)
	}
	hash := plumbing.NewHash(*f.GitSha1)
	return CanonicalIdentity{File: f, GitCommit: &hash}, nil
}

// Key returns the string that identifies this archive for Pool caching and
// Debian matching: the git commit hash when present, the sha1_cksum
// otherwise.
func (c CanonicalIdentity) Key() string {
	if c.GitCommit != nil {
		return c.GitCommit.String()
	}
	return c.Sha1Cksum
}

func isHexSha1(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
