// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debianmatch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"pault.ag/go/debian/control"

	"github.com/aliens4friends/a4f/internal/httpx"
)

// SourcesIndex implements Index against a Debian archive's per-component
// Sources.gz control file. The whole component's index is scanned once and
// cached in memory, since Search needs name candidates up front rather than
// one exact lookup.
type SourcesIndex struct {
	Client      httpx.BasicClient
	RegistryURL string // e.g. "https://deb.debian.org/debian"
	Component   string // e.g. "main"
	Suite       string // e.g. "sid"

	entries map[string][]string // name -> versions, populated on first Search
}

func (s *SourcesIndex) sourcesURL() string {
	return fmt.Sprintf("%s/dists/%s/%s/source/Sources.gz", s.RegistryURL, s.Suite, s.Component)
}

func (s *SourcesIndex) load(ctx context.Context) error {
	if s.entries != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourcesURL(), nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %s: %s", s.sourcesURL(), resp.Status)
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return errors.Wrap(err, "decompressing Sources.gz")
	}
	defer gz.Close()
	entries, err := parseSources(gz)
	if err != nil {
		return err
	}
	s.entries = entries
	return nil
}

// sourcesStanza is the slice of a Sources index paragraph the matcher needs;
// the rest of each stanza stays in the embedded Paragraph.
type sourcesStanza struct {
	control.Paragraph

	Package string
	Version string
}

// parseSources decodes a Sources control file into a name -> versions map.
func parseSources(r io.Reader) (map[string][]string, error) {
	dec, err := control.NewDecoder(r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading Sources index")
	}
	entries := map[string][]string{}
	for {
		var stanza sourcesStanza
		if err := dec.Decode(&stanza); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "decoding Sources stanza")
		}
		if stanza.Package == "" || stanza.Version == "" {
			continue
		}
		entries[stanza.Package] = append(entries[stanza.Package], stanza.Version)
	}
	return entries, nil
}

// Search implements Index by loading the component's Sources file once and
// matching against every requested alias name, substring-filtered so
// CurrentMatcher's fuzzy scorer only has to rank a plausible shortlist.
func (s *SourcesIndex) Search(ctx context.Context, names []string) ([]IndexEntry, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	var out []IndexEntry
	seen := map[string]bool{}
	for candidate, versions := range s.entries {
		if !seen[candidate] && nameIsPlausible(candidate, names) {
			seen[candidate] = true
			out = append(out, IndexEntry{Name: candidate, Versions: versions})
		}
	}
	return out, nil
}

func nameIsPlausible(candidate string, names []string) bool {
	for _, n := range names {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(n, "lib"), "python3-")
		if strings.Contains(candidate, trimmed) || strings.Contains(trimmed, candidate) {
			return true
		}
	}
	return false
}

var _ Index = &SourcesIndex{}

// SnapshotHTTPIndex implements SnapshotIndex against the snapshot.debian.org
// JSON API: /mr/file/<sha1>/info resolves a file hash to the source package
// that shipped it, and is the only snapshot endpoint queried. Name/version
// candidates come from the embedded SourcesIndex's Search (Sources.gz),
// since snapshot mirrors the same archive layout; the sha1 shortcut sits on
// top.
type SnapshotHTTPIndex struct {
	SourcesIndex
}

type snapshotFileInfo struct {
	Result []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"result"`
}

// ResolveBySha1 queries snapshot.debian.org's file-hash index, returning the
// first source package/version that is reported to have shipped the file.
func (s *SnapshotHTTPIndex) ResolveBySha1(ctx context.Context, sha1 string) (name, version string, found bool) {
	url := fmt.Sprintf("%s/mr/file/%s/info", s.RegistryURL, sha1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", false
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", false
	}
	var info snapshotFileInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || len(info.Result) == 0 {
		return "", "", false
	}
	nameVersion := strings.SplitN(info.Result[0].Path, "/", 2)
	if len(nameVersion) == 0 {
		return "", "", false
	}
	return info.Result[0].Name, versionFromPath(info.Result[0].Path), true
}

// versionFromPath extracts the Debian version component out of a
// snapshot.debian.org archive path of the form pool/main/p/pkg/pkg_1.2-3.dsc.
func versionFromPath(path string) string {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	base = strings.TrimSuffix(base, ".dsc")
	if idx := strings.Index(base, "_"); idx >= 0 {
		return strings.TrimSuffix(base[idx+1:], ".debian.tar.xz")
	}
	return base
}

var _ SnapshotIndex = &SnapshotHTTPIndex{}
