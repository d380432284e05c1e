// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package cvecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/httpx"
)

// MaxAge is how stale a local yearly feed file may be before Mirror
// refetches it.
const MaxAge = 24 * time.Hour

// feedURL is the NVD JSON feed's base; a trailing "nvdcve-2.0-<year>.json"
// is appended per year.
const feedURL = "https://nvd.nist.gov/feeds/json/cve/2.0"

// rawFeed is the subset of an NVD yearly feed document that Mirror and
// LoadYear need.
type rawFeed struct {
	CVEItems []struct {
		CVE            CVE `json:"cve"`
		Configurations []struct {
			Nodes []Node `json:"nodes"`
		} `json:"configurations"`
	} `json:"vulnerabilities"`
}

// Mirror maintains a local, filesystem-backed cache of NVD yearly feeds,
// refreshing any file older than MaxAge the way Pool's cache policy governs
// staleness, adapted here to a non-identity-keyed sidecar store since feed
// files aren't addressed by package identity.
type Mirror struct {
	FS   billy.Filesystem
	HTTP httpx.BasicClient
}

// NewMirror returns a Mirror backed by fs, wrapping client in an
// httpx.RetryingClient.
func NewMirror(fs billy.Filesystem, client httpx.BasicClient) *Mirror {
	return &Mirror{FS: fs, HTTP: &httpx.RetryingClient{BasicClient: client}}
}

func feedPath(year int) string {
	return path.Join("cve", fmt.Sprintf("nvdcve-2.0-%d.json", year))
}

// lockFeedDir takes an advisory lock file on the feed directory so
// concurrent a4f processes don't refetch the same year simultaneously.
// Locks older than staleLockAge are treated as leftovers of a crashed
// process and stolen.
const staleLockAge = 10 * time.Minute

func (m *Mirror) lockFeedDir(ctx context.Context) (release func(), err error) {
	lockPath := path.Join("cve", ".feed.lock")
	if err := m.FS.MkdirAll("cve", 0o755); err != nil {
		return nil, errors.Wrap(err, "cvecheck: creating feed directory")
	}
	for {
		f, err := m.FS.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { m.FS.Remove(lockPath) }, nil
		}
		if fi, serr := m.FS.Stat(lockPath); serr == nil && time.Since(fi.ModTime()) > staleLockAge {
			m.FS.Remove(lockPath)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Refresh ensures the local copy of year's feed exists and is no older than
// MaxAge, fetching a new copy otherwise. The fetch-and-write runs under the
// feed directory's advisory lock.
func (m *Mirror) Refresh(ctx context.Context, year int) error {
	p := feedPath(year)
	if fi, err := m.FS.Stat(p); err == nil {
		if time.Since(fi.ModTime()) < MaxAge {
			return nil
		}
	}
	release, err := m.lockFeedDir(ctx)
	if err != nil {
		return err
	}
	defer release()
	// Re-check under the lock: another process may have refreshed while we
	// were waiting.
	if fi, err := m.FS.Stat(p); err == nil {
		if time.Since(fi.ModTime()) < MaxAge {
			return nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/nvdcve-2.0-%d.json", feedURL, year), nil)
	if err != nil {
		return errors.Wrap(err, "cvecheck: building feed request")
	}
	resp, err := m.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "cvecheck: fetching %d feed", year)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("cvecheck: feed %d: unexpected status %d", year, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "cvecheck: reading feed body")
	}
	f, err := m.FS.Create(p)
	if err != nil {
		return errors.Wrap(err, "cvecheck: creating local feed file")
	}
	defer f.Close()
	if _, err := f.Write(body); err != nil {
		return errors.Wrap(err, "cvecheck: writing local feed file")
	}
	return nil
}

// LoadYear reads and decodes year's locally mirrored feed, flattening its
// entries into the CVE slice Check consumes. Call Refresh first to ensure
// freshness; LoadYear itself never performs network I/O.
func (m *Mirror) LoadYear(year int) ([]CVE, error) {
	f, err := m.FS.Open(feedPath(year))
	if err != nil {
		return nil, errors.Wrapf(err, "cvecheck: opening local feed for %d", year)
	}
	defer f.Close()
	var feed rawFeed
	if err := json.NewDecoder(f).Decode(&feed); err != nil {
		return nil, errors.Wrapf(err, "cvecheck: decoding local feed for %d", year)
	}
	cves := make([]CVE, 0, len(feed.CVEItems))
	for _, item := range feed.CVEItems {
		cve := item.CVE
		for _, cfg := range item.Configurations {
			cve.Nodes = append(cve.Nodes, cfg.Nodes...)
		}
		cves = append(cves, cve)
	}
	return cves, nil
}
