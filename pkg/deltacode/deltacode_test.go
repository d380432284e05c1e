// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package deltacode

import "testing"

func TestReconcileClassifiesEachCategory(t *testing.T) {
	old := ScanReport{
		"a.c":           {Path: "a.c", Sha1: "s1", Licenses: []string{"MIT"}, Copyrights: []string{"2019 Foo"}},
		"moved.c":       {Path: "moved.c", Sha1: "s2"},
		"nolic.c":       {Path: "nolic.c", Sha1: "s3"},
		"samelc.c":      {Path: "samelc.c", Sha1: "s4", Licenses: []string{"MIT"}, Copyrights: []string{"2020 Foo"}},
		"year.c":        {Path: "year.c", Sha1: "s5", Licenses: []string{"MIT"}, Copyrights: []string{"2019 Foo"}},
		"other.c":       {Path: "other.c", Sha1: "s6", Licenses: []string{"MIT"}, Copyrights: []string{"2019 Foo"}},
		"deletedlc.c":   {Path: "deletedlc.c", Sha1: "s7", Licenses: []string{"MIT"}},
		"deletednolc.c": {Path: "deletednolc.c", Sha1: "s8"},
	}
	new := ScanReport{
		"a.c":       {Path: "a.c", Sha1: "s1", Licenses: []string{"MIT"}, Copyrights: []string{"2019 Foo"}},
		"moved2.c":  {Path: "moved2.c", Sha1: "s2"},
		"nolic.c":   {Path: "nolic.c", Sha1: "s3-changed"},
		"samelc.c":  {Path: "samelc.c", Sha1: "s4-changed", Licenses: []string{"MIT"}, Copyrights: []string{"2020 Foo"}},
		"year.c":    {Path: "year.c", Sha1: "s5-changed", Licenses: []string{"MIT"}, Copyrights: []string{"2021 Foo"}},
		"other.c":   {Path: "other.c", Sha1: "s6-changed", Licenses: []string{"Apache-2.0"}, Copyrights: []string{"2019 Foo"}},
		"newnolc.c": {Path: "newnolc.c", Sha1: "n1"},
		"newlc.c":   {Path: "newlc.c", Sha1: "n2", Licenses: []string{"MIT"}},
	}
	report := Reconcile(old, new)

	cases := map[Category]int{
		Same:                          1,
		Moved:                         1,
		ChangedNoLicenseCopyright:     1,
		ChangedSameLicenseCopyright:   1,
		ChangedCopyrightYearOnly:      1,
		ChangedOther:                  1,
		NewNoLicenseCopyright:         1,
		NewWithLicenseOrCopyright:     1,
		DeletedNoLicenseCopyright:     1,
		DeletedWithLicenseOrCopyright: 1,
	}
	for cat, want := range cases {
		if got := report.Stats[cat]; got != want {
			t.Errorf("Stats[%s] = %d, want %d", cat, got, want)
		}
	}
}

func TestReconcileRecordsMovedPairs(t *testing.T) {
	old := ScanReport{
		"zconf.h": {Path: "zconf.h", Sha1: "s1"},
	}
	new := ScanReport{
		"zconf.h.in": {Path: "zconf.h.in", Sha1: "s1"},
	}
	report := Reconcile(old, new)
	if report.Stats[Moved] != 1 {
		t.Fatalf("Stats[moved_files] = %d, want 1", report.Stats[Moved])
	}
	if got := report.MovedPairs["zconf.h.in"]; got != "zconf.h" {
		t.Fatalf("MovedPairs[zconf.h.in] = %q, want zconf.h", got)
	}
}

func TestReconcileEmpty(t *testing.T) {
	report := Reconcile(ScanReport{}, ScanReport{})
	if report.Similarity != 0 {
		t.Errorf("Similarity = %v, want 0 for empty new report", report.Similarity)
	}
}

func TestReconcileSimilarityAllSame(t *testing.T) {
	rpt := ScanReport{
		"a.c": {Path: "a.c", Sha1: "s1"},
		"b.c": {Path: "b.c", Sha1: "s2"},
	}
	report := Reconcile(rpt, rpt)
	if report.Similarity != 1 {
		t.Errorf("Similarity = %v, want 1 when old==new", report.Similarity)
	}
}

func TestNormalizeLicenseSetCollapsesSynonymsAndNoassertion(t *testing.T) {
	got := normalizeLicenseSet([]string{"MIT", "mit", "NOASSERTION", "gpl-2.0"})
	want := []string{"GPL-2.0-only", "MIT"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMaskYears(t *testing.T) {
	got := maskYears([]string{"copyright 2019 foo", "copyright 2021 foo"})
	if got[0] != got[1] {
		t.Errorf("maskYears did not normalize year tokens: %v", got)
	}
}
