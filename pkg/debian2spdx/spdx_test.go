// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import "testing"

func TestNormalizeLicenseFallsBackToNOASSERTION(t *testing.T) {
	if got := normalizeLicense(""); got != "NOASSERTION" {
		t.Fatalf("empty license: want NOASSERTION, got %q", got)
	}
}

func TestSanitizeElementIDStripsInvalidRunes(t *testing.T) {
	got := sanitizeElementID("src/foo bar/baz.c")
	for _, r := range got {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			t.Fatalf("sanitizeElementID(%q) contains invalid rune %q", "src/foo bar/baz.c", r)
		}
	}
}

func TestSerializeProducesOneFilePerEntry(t *testing.T) {
	doc := &Document{
		PackageName:    "foo",
		PackageVersion: "1.0",
		PackageLicense: "MIT",
		Files: []FileEntry{
			{Path: "src/a.c", LicenseConcluded: "MIT", Copyright: "2020 Someone"},
			{Path: "src/b.c", LicenseConcluded: "", Copyright: ""},
		},
	}
	var sb stringWriter
	if err := doc.Serialize(&sb); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if sb.Len() == 0 {
		t.Fatal("want non-empty Tag-Value output")
	}
}

type stringWriter struct {
	data []byte
}

func (s *stringWriter) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *stringWriter) Len() int { return len(s.data) }
