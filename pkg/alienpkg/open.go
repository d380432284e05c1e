// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package alienpkg

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/pool"
)

// Open locates the userland .aliensrc archive for (name, version), however
// it was named at ingestion time, and parses it. It mirrors the
// glob-then-match approach session.Populate uses to discover pool entries,
// since an archive's on-disk basename is independent of its (name, version)
// identity.
func Open(p *pool.Pool, name, version string) (*AlienPackage, string, error) {
	pattern := fmt.Sprintf("userland/%s/%s/*.%s", name, version, pool.ALIENSRC)
	matches, err := p.Glob(pattern)
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", errors.Wrapf(a4ferr.ErrNotFound, "no aliensrc for %s@%s", name, version)
	}
	path := matches[0]
	raw, err := p.Read(path)
	if err != nil {
		return nil, "", err
	}
	ap, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	return ap, path, nil
}
