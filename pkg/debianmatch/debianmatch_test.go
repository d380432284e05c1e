// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debianmatch

import (
	"archive/tar"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aliens4friends/a4f/pkg/alienpkg"
)

func TestParseSourcesCollectsVersionsPerPackage(t *testing.T) {
	const index = "Package: zlib\n" +
		"Binary: zlib1g, zlib1g-dev\n" +
		"Version: 1:1.2.11.dfsg-1\n" +
		"\n" +
		"Package: zlib\n" +
		"Version: 1:1.2.11.dfsg-2\n" +
		"\n" +
		"Package: acl\n" +
		"Version: 2.2.53-10\n"
	entries, err := parseSources(strings.NewReader(index))
	if err != nil {
		t.Fatalf("parseSources: %v", err)
	}
	if got := entries["zlib"]; len(got) != 2 {
		t.Errorf("zlib versions = %v, want 2 entries", got)
	}
	if got := entries["acl"]; len(got) != 1 || got[0] != "2.2.53-10" {
		t.Errorf("acl versions = %v, want [2.2.53-10]", got)
	}
}

const testManifest = `{
  "version": 1,
  "source_package": {
    "name": ["zlib"],
    "version": "1.2.11-r0",
    "manager": "bitbake",
    "files": [{
      "name": "zlib-1.2.11.tar.xz",
      "sha1_cksum": "e1cb0d5c92da8e9a8c2635dfa249c341dfd00322",
      "git_sha1": null,
      "src_uri": "https://zlib.net/zlib-1.2.11.tar.xz",
      "files_in_archive": 42
    }]
  }
}`

func buildAlienPackage(t *testing.T) *alienpkg.AlienPackage {
	t.Helper()
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	hdr := &tar.Header{Name: "aliensrc.json", Size: int64(len(testManifest)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(testManifest)); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	ap, err := alienpkg.Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ap
}

type fakeIndex struct {
	entries []IndexEntry
}

func (f *fakeIndex) Search(ctx context.Context, names []string) ([]IndexEntry, error) {
	return f.entries, nil
}

type fakeSnapshotIndex struct {
	fakeIndex
	bySha1 map[string][2]string
}

func (f *fakeSnapshotIndex) ResolveBySha1(ctx context.Context, sha1 string) (string, string, bool) {
	v, ok := f.bySha1[sha1]
	return v[0], v[1], ok
}

type fakeFetcher struct{}

func (fakeFetcher) FetchDSC(ctx context.Context, component, name, version string) (string, DscFormat, error) {
	return "https://deb.debian.org/debian/pool/main/z/" + name + "/" + name + "_" + version + ".dsc", Format3_0Quilt, nil
}

func (fakeFetcher) FetchArtifact(ctx context.Context, component, name, artifact string) ([]byte, error) {
	return []byte("artifact"), nil
}

func TestCurrentMatcherPicksBestCandidate(t *testing.T) {
	ap := buildAlienPackage(t)
	idx := &fakeIndex{entries: []IndexEntry{
		{Name: "zlib1g", Versions: []string{"1.2.10-1", "1.2.11-2"}},
		{Name: "totally-unrelated", Versions: []string{"9.9.9"}},
	}}
	m := &CurrentMatcher{Index: idx, Fetcher: fakeFetcher{}}
	result, err := m.Match(context.Background(), ap)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.DebianName != "zlib1g" {
		t.Errorf("DebianName = %q, want zlib1g", result.DebianName)
	}
	if result.DebianVersion != "1.2.11-2" {
		t.Errorf("DebianVersion = %q, want 1.2.11-2", result.DebianVersion)
	}
	if result.Score < 90 {
		t.Errorf("Score = %v, want >= 90", result.Score)
	}
}

func TestCurrentMatcherNotFoundWithNoCandidates(t *testing.T) {
	ap := buildAlienPackage(t)
	idx := &fakeIndex{}
	m := &CurrentMatcher{Index: idx, Fetcher: fakeFetcher{}}
	if _, err := m.Match(context.Background(), ap); err == nil {
		t.Fatal("expected NotFound error with an empty index")
	}
}

func TestCurrentMatcherNotFoundWithVersionTooFar(t *testing.T) {
	ap := buildAlienPackage(t)
	idx := &fakeIndex{entries: []IndexEntry{
		{Name: "zlib", Versions: []string{"99.99.99"}},
	}}
	m := &CurrentMatcher{Index: idx, Fetcher: fakeFetcher{}}
	if _, err := m.Match(context.Background(), ap); err == nil {
		t.Fatal("expected NotFound error when every candidate version exceeds the distance cap")
	}
}

func TestSnapMatcherResolvesBySha1(t *testing.T) {
	ap := buildAlienPackage(t)
	idx := &fakeSnapshotIndex{
		bySha1: map[string][2]string{
			"e1cb0d5c92da8e9a8c2635dfa249c341dfd00322": {"zlib", "1.2.11-2"},
		},
	}
	m := &SnapMatcher{Index: idx, Fetcher: fakeFetcher{}}
	result, err := m.Match(context.Background(), ap)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.DebianName != "zlib" || result.DebianVersion != "1.2.11-2" {
		t.Errorf("result = %+v", result)
	}
	if result.VersionScore != 100 {
		t.Errorf("VersionScore = %d, want 100 for sha1-resolved match", result.VersionScore)
	}
	if len(result.SrcFiles) != 1 {
		t.Errorf("SrcFiles = %v, want 1 entry", result.SrcFiles)
	}
}

func TestSnapMatcherFallsBackToNameVersion(t *testing.T) {
	ap := buildAlienPackage(t)
	idx := &fakeSnapshotIndex{
		fakeIndex: fakeIndex{entries: []IndexEntry{
			{Name: "zlib1g", Versions: []string{"1.2.11-2"}},
		}},
		bySha1: map[string][2]string{},
	}
	m := &SnapMatcher{Index: idx, Fetcher: fakeFetcher{}}
	result, err := m.Match(context.Background(), ap)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.DebianName != "zlib1g" {
		t.Errorf("DebianName = %q, want zlib1g", result.DebianName)
	}
}
