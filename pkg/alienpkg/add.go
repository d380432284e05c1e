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

// Add ingests raw .aliensrc tar bytes into p under basename, failing with
// a4ferr.ErrDuplicatePackage if an identically-named archive already exists
// and force is false.
func Add(p *pool.Pool, raw []byte, basename string, force bool) (*AlienPackage, string, error) {
	ap, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	if basename == "" {
		basename = fmt.Sprintf("%s-%s", ap.PrimaryName(), ap.Version())
	}
	path, err := p.Resolve(pool.Userland, ap.PrimaryName(), ap.Version(), basename, pool.ALIENSRC)
	if err != nil {
		return nil, "", err
	}
	ifExists := pool.Fail
	if force {
		ifExists = pool.Overwrite
	}
	if err := p.Write(path, raw, ifExists); err != nil {
		if errors.Is(err, a4ferr.ErrDuplicatePackage) {
			return nil, "", errors.Wrapf(a4ferr.ErrDuplicatePackage, "%s already ingested (use --force)", path)
		}
		return nil, "", err
	}
	return ap, path, nil
}
