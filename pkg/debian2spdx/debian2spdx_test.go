// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import (
	"errors"
	"strings"
	"testing"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

const sampleCopyright = `Format: https://www.debian.org/doc/packaging-manuals/copyright-format/1.0/
Upstream-Name: zlib
Source: https://zlib.net

Files: *
Copyright: 1995-2017 Jean-loup Gailly and Mark Adler
License: Zlib

Files: contrib/minizip/*
Copyright: 1998-2010 Gilles Vollant
License: BSD-3-Clause

License: Zlib
 Permission is granted to anyone to use this software for any purpose.
 .
 This notice may not be removed or altered.
`

func TestParseCopyrightValid(t *testing.T) {
	cp, err := ParseCopyright(strings.NewReader(sampleCopyright))
	if err != nil {
		t.Fatalf("ParseCopyright: %v", err)
	}
	if len(cp.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(cp.Files))
	}
	if cp.Files[0].License != "Zlib" {
		t.Errorf("Files[0].License = %q, want Zlib", cp.Files[0].License)
	}
	if _, ok := cp.Licenses["Zlib"]; !ok {
		t.Errorf("expected stand-alone Zlib license text, got %v", cp.Licenses)
	}
}

func TestParseCopyrightRejectsMissingFormat(t *testing.T) {
	_, err := ParseCopyright(strings.NewReader("Upstream-Name: foo\n\nFiles: *\nCopyright: x\nLicense: MIT\n"))
	if !errors.Is(err, a4ferr.ErrCorruptInput) {
		t.Fatalf("expected ErrCorruptInput, got %v", err)
	}
}

func TestExpandFilesGlob(t *testing.T) {
	cp, err := ParseCopyright(strings.NewReader(sampleCopyright))
	if err != nil {
		t.Fatalf("ParseCopyright: %v", err)
	}
	tree := []string{"README", "contrib/minizip/zip.c", "deflate.c"}
	expanded := ExpandFiles(cp, tree)
	if expanded["contrib/minizip/zip.c"].License != "BSD-3-Clause" {
		t.Errorf("expected minizip override, got %+v", expanded["contrib/minizip/zip.c"])
	}
	if expanded["deflate.c"].License != "Zlib" {
		t.Errorf("expected catch-all Zlib, got %+v", expanded["deflate.c"])
	}
}

func TestPackageLicenseUnion(t *testing.T) {
	cp, err := ParseCopyright(strings.NewReader(sampleCopyright))
	if err != nil {
		t.Fatalf("ParseCopyright: %v", err)
	}
	lic := PackageLicense(cp)
	if !strings.Contains(lic, "Zlib") || !strings.Contains(lic, "BSD-3-Clause") || !strings.Contains(lic, "AND") {
		t.Errorf("PackageLicense = %q, want AND-joined union", lic)
	}
}

func TestBuildDocument(t *testing.T) {
	cp, _ := ParseCopyright(strings.NewReader(sampleCopyright))
	doc := Build("zlib", "1.2.11", cp, []string{"README", "contrib/minizip/zip.c", "deflate.c"})
	if doc.PackageName != "zlib" {
		t.Errorf("PackageName = %q", doc.PackageName)
	}
	byPath := doc.FileByPath()
	if byPath["contrib/minizip/zip.c"].LicenseConcluded != "BSD-3-Clause" {
		t.Errorf("file-level license not carried through Build: %+v", byPath)
	}
	if _, ok := doc.LicenseRefs["LicenseRef-Zlib"]; !ok {
		t.Errorf("expected LicenseRef-Zlib in document, got %v", doc.LicenseRefs)
	}
}
