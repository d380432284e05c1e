// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import "testing"

func TestClassifyFallbackEmptyTextIsNoAssertion(t *testing.T) {
	if got := ClassifyFallback(""); got != "NOASSERTION" {
		t.Fatalf("want NOASSERTION for empty text, got %q", got)
	}
}

func TestExpandFilesWithFallbackOnlyTouchesBlankLicenses(t *testing.T) {
	cp := &Copyright{
		Files: []FilesParagraph{
			{Patterns: []string{"src/a.c"}, License: "MIT", Copyright: "2020 A"},
			{Patterns: []string{"src/b.c"}, License: "", Copyright: "2020 B"},
		},
	}
	calls := map[string]bool{}
	expanded := ExpandFilesWithFallback(cp, []string{"src/a.c", "src/b.c"}, func(path string) string {
		calls[path] = true
		return ""
	})
	if expanded["src/a.c"].License != "MIT" {
		t.Fatalf("want MIT preserved, got %q", expanded["src/a.c"].License)
	}
	if calls["src/a.c"] {
		t.Fatal("fallback should not be consulted for a.c, which already has a License")
	}
	if !calls["src/b.c"] {
		t.Fatal("fallback should be consulted for b.c")
	}
	if expanded["src/b.c"].License != "NOASSERTION" {
		t.Fatalf("want NOASSERTION fallback, got %q", expanded["src/b.c"].License)
	}
}
