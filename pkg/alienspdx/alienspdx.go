// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package alienspdx synthesizes the alien package's SPDX document by
// weaving scancode findings with the Debian-derived SPDX document under
// a set of similarity-gated rules.
package alienspdx

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spdx/tools-golang/spdx/v2/common"
	spdx22 "github.com/spdx/tools-golang/spdx/v2/v2_2"
	"github.com/spdx/tools-golang/tagvalue"

	"github.com/aliens4friends/a4f/pkg/debian2spdx"
	"github.com/aliens4friends/a4f/pkg/deltacode"
)

// Tier names the similarity band a synthesis fell into,
// recorded for audit/debugging even though it only indirectly affects the
// output shape.
type Tier string

const (
	TierScancodeOnly   Tier = "scancode-only"   // S < 0.30
	TierFileLevel      Tier = "file-level"      // 0.30 <= S < 0.92
	TierPackageLicense Tier = "package-license" // 0.92 <= S < 1.00
	TierFull           Tier = "full"            // S == 1.00 or --apply-debian-full
)

// FileAssertion is one SPDX-File's worth of license/copyright assertions in
// the alien document.
type FileAssertion struct {
	Path               string
	LicenseConcluded   string // set only when Debian metadata was woven in
	LicenseInfoInFiles []string
	Copyright          string
}

// Document is the synthesized alien SPDX document.
type Document struct {
	Tier                   Tier
	Files                  []FileAssertion
	PackageLicenseDeclared string // set at tier >= package-license
	PackageCopyrightText   string // set at tier == full
	PackageSupplier        string // set at tier == full
	PackageOriginator      string // set at tier == full
	Warning                string // set when there's no Debian match at all
	Disclaimer             string // SPDX_DISCLAIMER, emitted as the creator comment
}

const (
	tierFileLevelThreshold      = 0.30
	tierPackageLicenseThreshold = 0.92
	tierFullThreshold           = 1.00
)

// weaveEligible is the set of deltacode categories eligible for having
// their Debian per-file assertion copied over.
var weaveEligible = map[deltacode.Category]bool{
	deltacode.Same:                        true,
	deltacode.Moved:                       true,
	deltacode.ChangedNoLicenseCopyright:   true,
	deltacode.ChangedSameLicenseCopyright: true,
	deltacode.ChangedCopyrightYearOnly:    true,
}

// Synthesize builds the alien SPDX document. scancode is the
// alien's own per-file scan findings; delta may be nil if there is no
// Debian match (in which case the document degrades to scancode-only with
// a warning); debianDoc may be nil for the same reason; applyDebianFull
// forces the S=1.00 branch regardless of computed similarity.
func Synthesize(scancode deltacode.ScanReport, delta *deltacode.DeltaReport, debianDoc *debian2spdx.Document, applyDebianFull bool) *Document {
	if delta == nil || debianDoc == nil {
		return scancodeOnly(scancode, "no Debian match: scancode-only output")
	}
	similarity := delta.Similarity
	pathCategory := invertBody(delta.Body)
	debianFiles := debianDoc.FileByPath()

	tier := classifyTier(similarity, applyDebianFull)
	doc := &Document{Tier: tier}

	paths := sortedPaths(scancode)
	for _, path := range paths {
		rec := scancode[path]
		assertion := FileAssertion{Path: path, Copyright: joinCopyrights(rec.Copyrights)}
		cat, known := pathCategory[path]
		if tier != TierScancodeOnly && known && weaveEligible[cat] {
			// A moved file lives at a different path on the Debian side;
			// the delta's pairing maps it back to the path the Debian
			// document is keyed by.
			debianPath := path
			if cat == deltacode.Moved {
				if old, ok := delta.MovedPairs[path]; ok {
					debianPath = old
				}
			}
			if df, ok := debianFiles[debianPath]; ok {
				assertion.LicenseConcluded = df.LicenseConcluded
				assertion.Copyright = df.Copyright
				doc.Files = append(doc.Files, assertion)
				continue
			}
		}
		assertion.LicenseInfoInFiles = rec.Licenses
		doc.Files = append(doc.Files, assertion)
	}

	if tier == TierPackageLicense || tier == TierFull {
		doc.PackageLicenseDeclared = debianDoc.PackageLicense
	}
	if tier == TierFull {
		doc.PackageCopyrightText = joinAllCopyrights(debianDoc)
		doc.PackageSupplier = "Debian"
		doc.PackageOriginator = debianDoc.UpstreamContact
	}
	return doc
}

// Serialize renders doc as an SPDX v2.2 Tag-Value document, named/namespaced
// from the alien package's identity. PackageSupplier and PackageOriginator,
// when set (tier full), are emitted as organizations per the SPDX
// package-information convention.
func (doc *Document) Serialize(w io.Writer, name, version string) error {
	pkgID := common.ElementID("Package-" + name)
	files := make([]*spdx22.File, 0, len(doc.Files))
	var fromFiles []string
	seen := map[string]bool{}
	for _, f := range doc.Files {
		concluded := f.LicenseConcluded
		if concluded == "" {
			concluded = "NOASSERTION"
		}
		infoInFiles := f.LicenseInfoInFiles
		if len(infoInFiles) == 0 {
			infoInFiles = []string{"NOASSERTION"}
		}
		for _, l := range infoInFiles {
			if !seen[l] {
				seen[l] = true
				fromFiles = append(fromFiles, l)
			}
		}
		files = append(files, &spdx22.File{
			FileName:           f.Path,
			FileSPDXIdentifier: common.ElementID(sanitizeElementID(f.Path)),
			LicenseConcluded:   concluded,
			LicenseInfoInFiles: infoInFiles,
			FileCopyrightText:  orNoAssertion(f.Copyright),
		})
	}
	sort.Strings(fromFiles)

	pkg := &spdx22.Package{
		PackageName:                 name,
		PackageSPDXIdentifier:       pkgID,
		PackageVersion:              version,
		PackageDownloadLocation:     "NOASSERTION",
		FilesAnalyzed:               true,
		IsFilesAnalyzedTagPresent:   true,
		PackageLicenseConcluded:     "NOASSERTION",
		PackageLicenseInfoFromFiles: fromFiles,
		PackageLicenseDeclared:      orNoAssertion(doc.PackageLicenseDeclared),
		PackageCopyrightText:        orNoAssertion(doc.PackageCopyrightText),
		Files:                       files,
	}
	if doc.PackageSupplier != "" {
		pkg.PackageSupplier = &common.Supplier{Supplier: doc.PackageSupplier, SupplierType: "Organization"}
	}
	if doc.PackageOriginator != "" {
		pkg.PackageOriginator = &common.Originator{Originator: doc.PackageOriginator, OriginatorType: "Organization"}
	}

	d := spdx22.Document{
		SPDXVersion:       "SPDX-2.2",
		DataLicense:       "CC0-1.0",
		SPDXIdentifier:    common.ElementID("DOCUMENT"),
		DocumentName:      fmt.Sprintf("%s-%s-alien", name, version),
		DocumentNamespace: fmt.Sprintf("https://aliens4friends/spdxdocs/%s-%s-alien", name, version),
		DocumentComment:   string(doc.Tier),
		CreationInfo: &spdx22.CreationInfo{
			Creators:       []common.Creator{{Creator: "a4f", CreatorType: "Tool"}},
			Created:        time.Now().UTC().Format(time.RFC3339),
			CreatorComment: doc.Disclaimer,
		},
		Packages: []*spdx22.Package{pkg},
	}
	return tagvalue.Write(&d, w)
}

func orNoAssertion(s string) string {
	if s == "" {
		return "NOASSERTION"
	}
	return s
}

func sanitizeElementID(path string) string {
	out := make([]rune, 0, len(path)+5)
	out = append(out, []rune("File-")...)
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func classifyTier(similarity float64, applyDebianFull bool) Tier {
	if applyDebianFull {
		return TierFull
	}
	switch {
	case similarity >= tierFullThreshold:
		return TierFull
	case similarity >= tierPackageLicenseThreshold:
		return TierPackageLicense
	case similarity >= tierFileLevelThreshold:
		return TierFileLevel
	default:
		return TierScancodeOnly
	}
}

func scancodeOnly(scancode deltacode.ScanReport, warning string) *Document {
	doc := &Document{Tier: TierScancodeOnly, Warning: warning}
	for _, path := range sortedPaths(scancode) {
		rec := scancode[path]
		doc.Files = append(doc.Files, FileAssertion{
			Path:               path,
			LicenseInfoInFiles: rec.Licenses,
			Copyright:          joinCopyrights(rec.Copyrights),
		})
	}
	return doc
}

func invertBody(body map[deltacode.Category][]string) map[string]deltacode.Category {
	inv := map[string]deltacode.Category{}
	for cat, paths := range body {
		for _, p := range paths {
			inv[p] = cat
		}
	}
	return inv
}

func sortedPaths(scancode deltacode.ScanReport) []string {
	paths := make([]string, 0, len(scancode))
	for p := range scancode {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func joinCopyrights(copyrights []string) string {
	if len(copyrights) == 0 {
		return "NOASSERTION"
	}
	out := copyrights[0]
	for _, c := range copyrights[1:] {
		out += "\n" + c
	}
	return out
}

func joinAllCopyrights(doc *debian2spdx.Document) string {
	var out string
	for i, f := range doc.Files {
		if f.Copyright == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += f.Copyright
	}
	if out == "" {
		return "NOASSERTION"
	}
	return out
}
