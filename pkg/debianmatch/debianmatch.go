// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package debianmatch implements the two Debian matcher variants: a
// CurrentMatcher against the live Debian archive, and a SnapMatcher against
// Debian snapshot's historical, file-SHA1-indexed archive. Both share the
// match(AlienPackage) -> MatchResult contract and a small HTTP Registry
// abstraction over the archive's index and pool layout.
package debianmatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
	"github.com/aliens4friends/a4f/pkg/calc"
)

// DscFormat enumerates the Debian source package format strings.
type DscFormat string

const (
	Format1_0       DscFormat = "1.0"
	Format3_0Quilt  DscFormat = "3.0 (quilt)"
	Format3_0Native DscFormat = "3.0 (native)"
)

// Candidate is one entry of MatchResult's candidate list.
type Candidate struct {
	Version    string `json:"version"`
	Distance   int    `json:"distance"`
	IsAliensrc bool   `json:"is_aliensrc"`
}

// MatchResult is the outcome of a successful match.
type MatchResult struct {
	AlienName     string      `json:"alien_name"`
	AlienVersion  string      `json:"alien_version"`
	DebianName    string      `json:"debian_name"`
	DebianVersion string      `json:"debian_version"`
	Score         float64     `json:"score"`
	PackageScore  int         `json:"package_score"`
	VersionScore  int         `json:"version_score"`
	Candidates    []Candidate `json:"candidates"`
	DebsrcOrig    string      `json:"debsrc_orig"`
	DebsrcDebian  string      `json:"debsrc_debian"`
	DscFormat     DscFormat   `json:"dsc_format"`
	SrcFiles      []SrcFile   `json:"srcfiles,omitempty"`
}

// SrcFile is a per-file download descriptor the snapshot matcher records.
type SrcFile struct {
	Sha1Cksum string `json:"sha1_cksum"`
	SrcURI    string `json:"src_uri"`
}

// IndexEntry is one package's metadata as exposed by a Debian package index
// (current archive or snapshot).
type IndexEntry struct {
	Name     string
	Versions []string
}

// Index is queried for name candidates before version scoring narrows them
// down to a single match.
type Index interface {
	// Search returns every indexed package whose name is a plausible
	// candidate for any of names (implementations may pre-filter
	// cheaply; final scoring is always done by calc.FuzzyPackageScore).
	Search(ctx context.Context, names []string) ([]IndexEntry, error)
}

// SnapshotIndex additionally supports the snapshot matcher's file-SHA1
// shortcut.
type SnapshotIndex interface {
	Index
	// ResolveBySha1 looks up the Debian source package that produced a
	// file with the given sha1, if known to snapshot.
	ResolveBySha1(ctx context.Context, sha1 string) (name, version string, found bool)
}

// SourceFetcher retrieves a matched Debian source's artifacts and reports
// its dsc format.
type SourceFetcher interface {
	FetchDSC(ctx context.Context, component, name, version string) (dscURL string, format DscFormat, err error)
	FetchArtifact(ctx context.Context, component, name, artifact string) ([]byte, error)
}

const maxVersionDistance = 300

// bestVersionMatch scans candidateVersions and returns the smallest
// distance <= 300, ties broken by preferring non-prerelease then the most
// recently ordered (lexicographically greatest, a reasonable proxy absent a
// full Debian version-compare ordering) version.
func bestVersionMatch(alienVersion string, candidateVersions []string) (best string, dist int, ok bool) {
	bestDist := maxVersionDistance + 1
	for _, v := range candidateVersions {
		d := calc.VersionDistance(alienVersion, v)
		if d > maxVersionDistance {
			continue
		}
		switch {
		case d < bestDist:
			bestDist, best, ok = d, v, true
		case d == bestDist && ok:
			bp, vp := calc.IsPreRelease(best), calc.IsPreRelease(v)
			if bp && !vp {
				best = v
			} else if bp == vp && v > best {
				best = v
			}
		}
	}
	return best, bestDist, ok
}

// matchNameAndVersion runs the shared fuzzy-name + version-distance scoring
// used by both matcher variants, given the candidate index entries already
// retrieved.
func matchNameAndVersion(ap *alienpkg.AlienPackage, entries []IndexEntry) (*MatchResult, error) {
	names := append([]string{ap.PrimaryName()}, ap.AlternativeNames()...)
	candidateNames := make([]string, len(entries))
	for i, e := range entries {
		candidateNames[i] = e.Name
	}
	bestName, packageScore, ok := calc.BestNameCandidate(names, candidateNames)
	if !ok {
		return nil, errors.Wrapf(a4ferr.ErrNotFound, "no Debian candidate for %v", names)
	}
	var versions []string
	for _, e := range entries {
		if e.Name == bestName {
			versions = e.Versions
			break
		}
	}
	bestVersion, dist, ok := bestVersionMatch(ap.Version(), versions)
	if !ok {
		return nil, errors.Wrapf(a4ferr.ErrNotFound, "no version of %s within distance for %s", bestName, ap.Version())
	}
	versionScore := calc.VersionScore(dist)
	var candidates []Candidate
	for _, v := range versions {
		candidates = append(candidates, Candidate{
			Version:    v,
			Distance:   calc.VersionDistance(ap.Version(), v),
			IsAliensrc: v == bestVersion,
		})
	}
	score := 0.5*float64(packageScore) + 0.5*float64(versionScore)
	score = roundToOneDecimal(score)
	return &MatchResult{
		AlienName:     ap.PrimaryName(),
		AlienVersion:  ap.Version(),
		DebianName:    bestName,
		DebianVersion: bestVersion,
		Score:         score,
		PackageScore:  packageScore,
		VersionScore:  versionScore,
		Candidates:    candidates,
	}, nil
}

func roundToOneDecimal(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

// CurrentMatcher matches against the live Debian archive.
type CurrentMatcher struct {
	Index   Index
	Fetcher SourceFetcher
}

// Match resolves ap against the current Debian index and fetches its
// source artifacts.
func (m *CurrentMatcher) Match(ctx context.Context, ap *alienpkg.AlienPackage) (*MatchResult, error) {
	names := append([]string{ap.PrimaryName()}, ap.AlternativeNames()...)
	entries, err := m.Index.Search(ctx, names)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "searching Debian index: %v", err)
	}
	result, err := matchNameAndVersion(ap, entries)
	if err != nil {
		return nil, err
	}
	if _, ok := ap.MainInternalArchive(); !ok {
		return nil, errors.Wrap(a4ferr.ErrCorruptInput, "NoInternalArchive")
	}
	dscURL, format, err := m.Fetcher.FetchDSC(ctx, "main", result.DebianName, result.DebianVersion)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "fetching dsc: %v", err)
	}
	result.DebsrcOrig = dscURL
	result.DscFormat = format
	return result, nil
}

var _ interface {
	Match(context.Context, *alienpkg.AlienPackage) (*MatchResult, error)
} = &CurrentMatcher{}

// SnapMatcher matches against Debian snapshot's historical
// index, preferring a direct file-SHA1 resolution over name/version
// scoring when available.
type SnapMatcher struct {
	Index   SnapshotIndex
	Fetcher SourceFetcher
}

// Match resolves ap against Debian snapshot, first trying the alien's main
// internal archive's canonical identity (its sha1, or the git commit hash
// for git:// sources) for an exact source-package resolution.
func (m *SnapMatcher) Match(ctx context.Context, ap *alienpkg.AlienPackage) (*MatchResult, error) {
	main, ok := ap.MainInternalArchive()
	if !ok {
		return nil, errors.Wrap(a4ferr.ErrCorruptInput, "NoInternalArchive")
	}
	ident, err := alienpkg.ResolveCanonicalIdentity(main)
	if err != nil {
		return nil, err
	}
	if name, version, found := m.Index.ResolveBySha1(ctx, ident.Key()); found {
		packageScore := 100
		if !strings.EqualFold(name, ap.PrimaryName()) {
			packageScore = calc.FuzzyPackageScore(ap.PrimaryName(), name)
		}
		result := &MatchResult{
			AlienName:     ap.PrimaryName(),
			AlienVersion:  ap.Version(),
			DebianName:    name,
			DebianVersion: version,
			PackageScore:  packageScore,
			VersionScore:  100,
			Score:         roundToOneDecimal(0.5*float64(packageScore) + 50),
			SrcFiles:      []SrcFile{{Sha1Cksum: main.Sha1Cksum, SrcURI: main.SrcURI}},
		}
		dscURL, format, err := m.Fetcher.FetchDSC(ctx, "main", name, version)
		if err != nil {
			return nil, errors.Wrapf(a4ferr.ErrNetwork, "fetching dsc: %v", err)
		}
		result.DebsrcOrig = dscURL
		result.DscFormat = format
		return result, nil
	}
	names := append([]string{ap.PrimaryName()}, ap.AlternativeNames()...)
	entries, err := m.Index.Search(ctx, names)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "searching snapshot index: %v", err)
	}
	result, err := matchNameAndVersion(ap, entries)
	if err != nil {
		return nil, err
	}
	dscURL, format, err := m.Fetcher.FetchDSC(ctx, "main", result.DebianName, result.DebianVersion)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "fetching dsc: %v", err)
	}
	result.DebsrcOrig = dscURL
	result.DscFormat = format
	return result, nil
}

var _ interface {
	Match(context.Context, *alienpkg.AlienPackage) (*MatchResult, error)
} = &SnapMatcher{}

// HTTPFetcher implements SourceFetcher by guessing pool URLs and parsing
// .dsc control stanzas, pointed at a configurable base registry URL so the
// current and snapshot matchers can share the implementation against
// different hosts.
type HTTPFetcher struct {
	Client      httpx.BasicClient
	RegistryURL string // e.g. "https://deb.debian.org/debian" or a snapshot.debian.org mirror root
}

func (f *HTTPFetcher) poolURL(component, name, artifact string) string {
	prefixDir := name[0:1]
	if strings.HasPrefix(name, "lib") && len(name) >= 4 {
		prefixDir = name[0:4]
	}
	return fmt.Sprintf("%s/pool/%s/%s/%s/%s", f.RegistryURL, component, prefixDir, name, artifact)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FetchDSC guesses the .dsc URL for (name, version) from the pool layout
// and classifies the dsc format from its Format: field.
func (f *HTTPFetcher) FetchDSC(ctx context.Context, component, name, version string) (string, DscFormat, error) {
	dscURL := f.poolURL(component, name, fmt.Sprintf("%s_%s.dsc", name, calc.NormalizeVersion(version)))
	b, err := f.get(ctx, dscURL)
	if err != nil {
		return "", "", err
	}
	return dscURL, classifyDscFormat(b), nil
}

// FetchArtifact downloads an arbitrary named artifact from the pool.
func (f *HTTPFetcher) FetchArtifact(ctx context.Context, component, name, artifact string) ([]byte, error) {
	return f.get(ctx, f.poolURL(component, name, artifact))
}

func classifyDscFormat(dsc []byte) DscFormat {
	s := string(dsc)
	switch {
	case strings.Contains(s, "3.0 (quilt)"):
		return Format3_0Quilt
	case strings.Contains(s, "3.0 (native)"):
		return Format3_0Native
	default:
		return Format1_0
	}
}

var _ SourceFetcher = &HTTPFetcher{}
