// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package alienpkg

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/pool"
)

func buildAliensrc(t *testing.T, manifestJSON string, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	writeMember(t, tw, "aliensrc.json", manifestJSON)
	for name, content := range files {
		writeMember(t, tw, name, content)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return buf.Bytes()
}

func writeMember(t *testing.T, tw *tar.Writer, name, content string) {
	t.Helper()
	hdr := &tar.Header{Name: name, Size: int64(len(content)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("writing header for %s: %v", name, err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("writing body for %s: %v", name, err)
	}
}

const zlibManifest = `{
  "version": 1,
  "source_package": {
    "name": ["zlib"],
    "version": "1.2.11-r0",
    "manager": "bitbake",
    "files": [
      {
        "name": "zlib-1.2.11.tar.xz",
        "sha1_cksum": "e1cb0d5c92da8e9a8c2635dfa249c341dfd00322",
        "git_sha1": null,
        "src_uri": "https://zlib.net/zlib-1.2.11.tar.xz",
        "files_in_archive": 42
      },
      {
        "name": "patch-unpack-disabled.tar.gz",
        "sha1_cksum": "e1cb0d5c92da8e9a8c2635dfa249c341dfd00322",
        "git_sha1": null,
        "src_uri": "https://example.org/patch.tar.gz?unpack=0",
        "files_in_archive": 3
      }
    ]
  }
}`

func TestParseValid(t *testing.T) {
	raw := buildAliensrc(t, zlibManifest, map[string]string{"files/README": "hello"})
	ap, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ap.PrimaryName() != "zlib" {
		t.Errorf("PrimaryName = %q, want zlib", ap.PrimaryName())
	}
	if ap.Version() != "1.2.11-r0" {
		t.Errorf("Version = %q, want 1.2.11-r0", ap.Version())
	}
	if _, ok := ap.RawFiles["files/README"]; !ok {
		t.Error("expected files/README to be captured")
	}
}

func TestParseRejectsWrongFirstMember(t *testing.T) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	writeMember(t, tw, "files/README", "hello")
	tw.Close()
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error when first member isn't aliensrc.json")
	}
}

func TestParseRejectsBadSha1(t *testing.T) {
	bad := `{"version":1,"source_package":{"name":["zlib"],"version":"1.0","manager":"bitbake","files":[{"name":"a","sha1_cksum":"short","src_uri":"x","files_in_archive":1}]}}`
	raw := buildAliensrc(t, bad, nil)
	if _, err := Parse(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected error for malformed sha1_cksum")
	}
}

func TestMainInternalArchiveSkipsUnpackDisabled(t *testing.T) {
	raw := buildAliensrc(t, zlibManifest, nil)
	ap, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, ok := ap.MainInternalArchive()
	if !ok {
		t.Fatal("expected a main internal archive")
	}
	if f.Name != "zlib-1.2.11.tar.xz" {
		t.Errorf("MainInternalArchive = %q, want zlib-1.2.11.tar.xz", f.Name)
	}
}

func TestAddWritesPoolEntryAndRejectsDuplicate(t *testing.T) {
	raw := buildAliensrc(t, zlibManifest, nil)
	p := pool.NewFromFilesystem(memfs.New(), true)
	ap, path, err := Add(p, raw, "zlib-1.2.11-r0", false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ap.PrimaryName() != "zlib" {
		t.Errorf("PrimaryName = %q", ap.PrimaryName())
	}
	if path != "userland/zlib/1.2.11-r0/zlib-1.2.11-r0.aliensrc" {
		t.Errorf("path = %q", path)
	}
	if _, _, err := Add(p, raw, "zlib-1.2.11-r0", false); !errors.Is(err, a4ferr.ErrDuplicatePackage) {
		t.Fatalf("expected ErrDuplicatePackage, got %v", err)
	}
	if _, _, err := Add(p, raw, "zlib-1.2.11-r0", true); err != nil {
		t.Fatalf("Add with force: %v", err)
	}
}
