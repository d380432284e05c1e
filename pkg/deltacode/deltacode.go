// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package deltacode reconciles two file-level ScanReports: an
// "old" report from the matched Debian source and a "new" report from the
// alien's own scan. Every file lands in exactly one classification bucket,
// driving the similarity-gated synthesis in pkg/alienspdx.
package deltacode

import (
	"regexp"
	"sort"
	"strings"
)

// FileRecord is one per-file entry of a ScanReport, normalized to the shape
// deltacode needs: path, content hash, and detected licenses/copyrights
// (a per-file map of {path -> {licenses[], copyrights[]}}).
type FileRecord struct {
	Path       string
	Sha1       string
	Licenses   []string
	Copyrights []string
}

// ScanReport is the normalized per-file map a scanner (or Debian2SPDX)
// produces.
type ScanReport map[string]FileRecord

// Category is one of the closed classification buckets.
type Category string

const (
	Same                          Category = "same_files"
	Moved                         Category = "moved_files"
	ChangedNoLicenseCopyright     Category = "changed_files_with_no_license_and_copyright"
	ChangedSameLicenseCopyright   Category = "changed_files_with_same_copyright_and_license"
	ChangedCopyrightYearOnly      Category = "changed_files_with_updated_copyright_year_only"
	ChangedOther                  Category = "changed_files_with_changed_copyright_or_license"
	NewNoLicenseCopyright         Category = "new_files_with_no_license_and_copyright"
	NewWithLicenseOrCopyright     Category = "new_files_with_license_or_copyright"
	DeletedNoLicenseCopyright     Category = "deleted_files_with_no_license_and_copyright"
	DeletedWithLicenseOrCopyright Category = "deleted_files_with_license_or_copyright"
)

// DeltaReport is the output of Reconcile: stats plus the classified body.
// MovedPairs records, for every new-side path in the moved_files bucket,
// the old-side path it was matched to; downstream consumers need the
// pairing to look the file up in Debian-keyed documents.
type DeltaReport struct {
	Stats      map[Category]int      `json:"stats"`
	Body       map[Category][]string `json:"body"`
	MovedPairs map[string]string     `json:"moved_pairs,omitempty"`
	Similarity float64               `json:"similarity"`
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// normalizeLicenseSet collapses SPDX identifier synonyms, whitespace, and
// NOASSERTION/NONE into a canonical, sorted, deduplicated slice for
// order-insensitive set comparison.
func normalizeLicenseSet(licenses []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range licenses {
		n := normalizeLicenseID(l)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var licenseSynonyms = map[string]string{
	"gpl-2.0+":     "GPL-2.0-or-later",
	"gpl-2.0":      "GPL-2.0-only",
	"gpl-3.0+":     "GPL-3.0-or-later",
	"gpl-3.0":      "GPL-3.0-only",
	"lgpl-2.1+":    "LGPL-2.1-or-later",
	"lgpl-2.1":     "LGPL-2.1-only",
	"bsd-3-clause": "BSD-3-Clause",
	"bsd-2-clause": "BSD-2-Clause",
	"mit":          "MIT",
	"apache-2.0":   "Apache-2.0",
}

func normalizeLicenseID(l string) string {
	trimmed := strings.TrimSpace(l)
	upper := strings.ToUpper(trimmed)
	if upper == "NOASSERTION" || upper == "NONE" || trimmed == "" {
		return ""
	}
	if canon, ok := licenseSynonyms[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return trimmed
}

// normalizeCopyrightSet lowercases, collapses whitespace, and sorts a
// copyright statement set for order-insensitive comparison.
func normalizeCopyrightSet(copyrights []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range copyrights {
		n := collapseWhitespace(strings.ToLower(strings.TrimSpace(c)))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// maskYears replaces 4-digit years with a placeholder so two copyright
// statements differing only in year can be compared for equality, for the
// "updated_copyright_year_only" category.
func maskYears(copyrights []string) []string {
	out := make([]string, len(copyrights))
	for i, c := range copyrights {
		out[i] = yearRe.ReplaceAllString(c, "<YEAR>")
	}
	return out
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Reconcile classifies every file of old and new into exactly one category
// each and computes the downstream Similarity measure. Same-path pairs are
// resolved before moved-file pairing so the classification is deterministic
// regardless of input ordering.
func Reconcile(old, new ScanReport) *DeltaReport {
	report := &DeltaReport{
		Stats: map[Category]int{},
		Body:  map[Category][]string{},
	}
	bySha1Old := map[string][]string{}
	for _, path := range sortedPaths(old) {
		sha1 := old[path].Sha1
		bySha1Old[sha1] = append(bySha1Old[sha1], path)
	}
	consumedOld := map[string]bool{}
	newPaths := sortedPaths(new)

	var unmatched []string
	for _, path := range newPaths {
		nrec := new[path]
		orec, samePath := old[path]
		switch {
		case samePath && orec.Sha1 == nrec.Sha1:
			classify(report, Same, path)
			consumedOld[path] = true
		case samePath:
			classifyChanged(report, path, orec, nrec)
			consumedOld[path] = true
		default:
			unmatched = append(unmatched, path)
		}
	}
	for _, path := range unmatched {
		nrec := new[path]
		if moved := firstUnconsumed(bySha1Old[nrec.Sha1], consumedOld); moved != "" {
			classify(report, Moved, path)
			if report.MovedPairs == nil {
				report.MovedPairs = map[string]string{}
			}
			report.MovedPairs[path] = moved
			consumedOld[moved] = true
			continue
		}
		if len(nrec.Licenses) == 0 && len(nrec.Copyrights) == 0 {
			classify(report, NewNoLicenseCopyright, path)
		} else {
			classify(report, NewWithLicenseOrCopyright, path)
		}
	}
	for _, path := range sortedPaths(old) {
		if consumedOld[path] {
			continue
		}
		orec := old[path]
		if len(orec.Licenses) == 0 && len(orec.Copyrights) == 0 {
			classify(report, DeletedNoLicenseCopyright, path)
		} else {
			classify(report, DeletedWithLicenseOrCopyright, path)
		}
	}
	report.Similarity = computeSimilarity(report, len(new))
	return report
}

func sortedPaths(report ScanReport) []string {
	paths := make([]string, 0, len(report))
	for p := range report {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func firstUnconsumed(paths []string, consumed map[string]bool) string {
	for _, p := range paths {
		if !consumed[p] {
			return p
		}
	}
	return ""
}

func classify(report *DeltaReport, cat Category, path string) {
	report.Stats[cat]++
	report.Body[cat] = append(report.Body[cat], path)
}

func classifyChanged(report *DeltaReport, path string, orec, nrec FileRecord) {
	oLic, nLic := normalizeLicenseSet(orec.Licenses), normalizeLicenseSet(nrec.Licenses)
	oCopy, nCopy := normalizeCopyrightSet(orec.Copyrights), normalizeCopyrightSet(nrec.Copyrights)
	switch {
	case len(nLic) == 0 && len(nCopy) == 0 && len(oLic) == 0 && len(oCopy) == 0:
		classify(report, ChangedNoLicenseCopyright, path)
	case stringSetEqual(oLic, nLic) && stringSetEqual(oCopy, nCopy):
		classify(report, ChangedSameLicenseCopyright, path)
	case stringSetEqual(oLic, nLic) && stringSetEqual(maskYears(oCopy), maskYears(nCopy)):
		classify(report, ChangedCopyrightYearOnly, path)
	default:
		classify(report, ChangedOther, path)
	}
}

// computeSimilarity implements the similarity formula:
// (same + moved + changed_no_lc + changed_same_lc + changed_year_only) / new_files_count
func computeSimilarity(report *DeltaReport, newCount int) float64 {
	if newCount == 0 {
		return 0
	}
	numerator := report.Stats[Same] + report.Stats[Moved] + report.Stats[ChangedNoLicenseCopyright] +
		report.Stats[ChangedSameLicenseCopyright] + report.Stats[ChangedCopyrightYearOnly]
	return float64(numerator) / float64(newCount)
}
