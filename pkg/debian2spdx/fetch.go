// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	debversion "pault.ag/go/debian/version"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
	"github.com/aliens4friends/a4f/pkg/deltacode"
)

// Tree is a Debian source tree flattened to path -> file bytes, merged per
// the matched dsc_format (one of the three Debian source layouts).
type Tree map[string][]byte

// ArtifactNames derives the conventional upstream/overlay tarball filenames
// for a matched Debian source, keyed by its dsc_format. Debian archive
// mirrors serve these under the same pool directory as the .dsc itself; the
// .dsc's own Files: stanza is the authoritative filename list, but deriving
// names from the well-known convention avoids a second parse pass over the
// .dsc body.
func ArtifactNames(name, version string, format debianmatch.DscFormat) (orig, overlay string) {
	v, err := debversion.Parse(version)
	upstream := version
	if err == nil {
		upstream = v.Version
	}
	switch format {
	case debianmatch.Format3_0Native:
		return fmt.Sprintf("%s_%s.tar.gz", name, version), ""
	case debianmatch.Format1_0:
		return fmt.Sprintf("%s_%s.orig.tar.gz", name, upstream), fmt.Sprintf("%s_%s.diff.gz", name, version)
	default: // 3.0 (quilt)
		return fmt.Sprintf("%s_%s.orig.tar.gz", name, upstream), fmt.Sprintf("%s_%s.debian.tar.gz", name, version)
	}
}

// FetchTree downloads and merges a matched Debian source's artifacts into a
// single in-memory tree. Only gzip-compressed tarballs are understood;
// .orig.tar.xz/.debian.tar.xz archives are out of scope.
func FetchTree(ctx context.Context, fetcher debianmatch.SourceFetcher, component, name, version string, format debianmatch.DscFormat) (Tree, error) {
	origName, overlayName := ArtifactNames(name, version, format)
	tree := Tree{}
	origBytes, err := fetcher.FetchArtifact(ctx, component, name, origName)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "fetching %s: %v", origName, err)
	}
	if err := extractGzipTarInto(tree, origBytes, ""); err != nil {
		return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "extracting %s: %v", origName, err)
	}
	if format == debianmatch.Format3_0Native {
		return tree, nil
	}
	overlayBytes, err := fetcher.FetchArtifact(ctx, component, name, overlayName)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "fetching %s: %v", overlayName, err)
	}
	if format == debianmatch.Format3_0Quilt {
		if err := extractGzipTarInto(tree, overlayBytes, "debian"); err != nil {
			return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "extracting %s: %v", overlayName, err)
		}
		return tree, nil
	}
	// Format1_0: the .diff.gz is a unified diff against the orig tree. Only
	// the common case of debian/* being added wholesale (every hunk line an
	// addition) is handled; anything else leaves debian/ absent and
	// ExtractCopyright reports CopyrightNotMachineParseable.
	applyAdditionsOnlyDiff(tree, overlayBytes)
	return tree, nil
}

func extractGzipTarInto(tree Tree, data []byte, prefix string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := stripLeadingComponent(hdr.Name)
		if prefix != "" {
			name = prefix + "/" + name
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		tree[name] = b
	}
}

// stripLeadingComponent removes a tarball's single top-level directory
// (Debian source tarballs conventionally wrap their content in
// "<name>-<version>/"), matching alienpkg's "files/" stripping idiom.
func stripLeadingComponent(name string) string {
	name = strings.TrimPrefix(name, "./")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

// applyAdditionsOnlyDiff scans a gzip'd unified diff for hunks that add a
// debian/ file wholesale (every body line prefixed '+', none prefixed '-')
// and materializes the added content directly, a deliberately narrow
// subset of patch semantics sufficient for format 1.0's typical
// "debian/ is entirely new" diffs.
func applyAdditionsOnlyDiff(tree Tree, gzData []byte) {
	gz, err := gzip.NewReader(bytes.NewReader(gzData))
	if err != nil {
		return
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		return
	}
	lines := strings.Split(string(data), "\n")
	var curPath string
	var body []string
	flush := func() {
		if curPath == "" || len(body) == 0 {
			return
		}
		if !strings.HasPrefix(curPath, "debian/") {
			return
		}
		tree[curPath] = []byte(strings.Join(body, "\n"))
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++ "):
			flush()
			curPath, body = "", nil
			path := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			path = strings.TrimPrefix(path, "b/")
			if idx := strings.Index(path, "\t"); idx >= 0 {
				path = path[:idx]
			}
			curPath = path
		case strings.HasPrefix(line, "--- "):
			// a pure addition's "---" side is /dev/null; anything else
			// disqualifies this hunk from the additions-only fast path.
			if !strings.Contains(line, "/dev/null") {
				curPath = ""
			}
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") && curPath != "":
			body = append(body, strings.TrimPrefix(line, "+"))
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			curPath = "" // a removal line means this isn't a clean addition
		}
	}
	flush()
}

// ExtractCopyright locates and parses debian/copyright within tree,
// returning a4ferr.ErrCorruptInput (CopyrightNotMachineParseable) if the
// file is absent or not DEP-5.
func ExtractCopyright(tree Tree) (*Copyright, error) {
	raw, ok := tree["debian/copyright"]
	if !ok {
		return nil, errors.Wrap(a4ferr.ErrCorruptInput, "CopyrightNotMachineParseable: debian/copyright not found in source tree")
	}
	return ParseCopyright(bytes.NewReader(raw))
}

// TreePaths returns tree's file paths, sorted, for Build/ExpandFiles.
func (t Tree) TreePaths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ToScanReport converts a fetched Tree plus its parsed Copyright into the
// "old" side of a deltacode.Reconcile call: one FileRecord per
// tree path, sha1 of the merged tree's bytes, and the license/copyright DEP-5
// assigns to that path (if any).
func ToScanReport(tree Tree, cp *Copyright) deltacode.ScanReport {
	expanded := ExpandFiles(cp, tree.TreePaths())
	report := deltacode.ScanReport{}
	for path, content := range tree {
		sum := sha1.Sum(content)
		rec := deltacode.FileRecord{Path: path, Sha1: hex.EncodeToString(sum[:])}
		if fp, ok := expanded[path]; ok {
			if fp.License != "" {
				rec.Licenses = []string{fp.License}
			}
			if fp.Copyright != "" {
				rec.Copyrights = []string{fp.Copyright}
			}
		}
		report[path] = rec
	}
	return report
}
