// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import (
	"fmt"
	"io"
	"sort"
	"time"

	spdxLicense "github.com/mitchellh/go-spdx"
	"github.com/spdx/tools-golang/spdx/v2/common"
	spdx22 "github.com/spdx/tools-golang/spdx/v2/v2_2"
	"github.com/spdx/tools-golang/tagvalue"
)

// FileEntry is one SPDX-File derived from a DEP-5 Files: paragraph:
// LicenseConcluded and Copyright carried verbatim from Debian.
type FileEntry struct {
	Path             string
	LicenseConcluded string
	Copyright        string
}

// Document is the Debian-derived SPDX document: a package-level license
// declaration plus one FileEntry per archive path, and the stand-alone
// LicenseRef texts referenced by any FileEntry's LicenseConcluded.
// Serialize renders it as an SPDX v2.2 Tag-Value document; pkg/alienspdx
// also consumes it and weaves in scancode and deltacode findings.
type Document struct {
	PackageName     string
	PackageVersion  string
	PackageLicense  string
	UpstreamName    string // DEP-5 header Upstream-Name, when present
	UpstreamContact string // DEP-5 header Upstream-Contact, when present
	Files           []FileEntry
	LicenseRefs     map[string]string // "LicenseRef-<id>" -> full text
}

// Build assembles a Document from a parsed Copyright and the concrete
// archive paths it applies to.
func Build(packageName, packageVersion string, cp *Copyright, treePaths []string) *Document {
	return buildDocument(packageName, packageVersion, cp, ExpandFiles(cp, treePaths))
}

// BuildWithFallback behaves like Build, but resolves Files: paragraphs
// lacking an explicit License: via ClassifyFallback instead of leaving them
// blank.
func BuildWithFallback(packageName, packageVersion string, cp *Copyright, treePaths []string, fileText func(path string) string) *Document {
	return buildDocument(packageName, packageVersion, cp, ExpandFilesWithFallback(cp, treePaths, fileText))
}

// buildDocument turns an expanded path -> Files: paragraph mapping into the
// sorted, deterministic Document both Build variants share.
func buildDocument(packageName, packageVersion string, cp *Copyright, expanded map[string]FilesParagraph) *Document {
	doc := &Document{
		PackageName:     packageName,
		PackageVersion:  packageVersion,
		PackageLicense:  PackageLicense(cp),
		UpstreamName:    cp.Upstream.Fields["Upstream-Name"],
		UpstreamContact: cp.Upstream.Fields["Upstream-Contact"],
		LicenseRefs:     map[string]string{},
	}
	paths := make([]string, 0, len(expanded))
	for p := range expanded {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fp := expanded[p]
		doc.Files = append(doc.Files, FileEntry{
			Path:             p,
			LicenseConcluded: fp.License,
			Copyright:        fp.Copyright,
		})
	}
	for shortName, text := range cp.Licenses {
		doc.LicenseRefs["LicenseRef-"+shortName] = text
	}
	return doc
}

// FileByPath indexes a Document's files for quick alienspdx lookups.
func (d *Document) FileByPath() map[string]FileEntry {
	m := make(map[string]FileEntry, len(d.Files))
	for _, f := range d.Files {
		m[f.Path] = f
	}
	return m
}

// normalizeLicense resolves id to its canonical SPDX license identifier via
// the SPDX license list, passing id through unchanged when it isn't a known
// short-form identifier (e.g. a LicenseRef-* or a free-form Debian string).
func normalizeLicense(id string) string {
	if id == "" {
		return "NOASSERTION"
	}
	lic, err := spdxLicense.License(id)
	if err != nil {
		return id
	}
	return lic.ID
}

// Serialize renders d as an SPDX v2.2 Tag-Value document,
// one Package with one File per archive path; stand-alone DEP-5 license
// paragraphs become OtherLicense (LicenseRef) entries with full text.
func (d *Document) Serialize(w io.Writer) error {
	pkgID := common.ElementID("Package-" + d.PackageName)
	files := make([]*spdx22.File, 0, len(d.Files))
	licenseInfoFromFiles := map[string]bool{}
	for _, f := range d.Files {
		concluded := normalizeLicense(f.LicenseConcluded)
		licenseInfoFromFiles[concluded] = true
		files = append(files, &spdx22.File{
			FileName:           f.Path,
			FileSPDXIdentifier: common.ElementID(sanitizeElementID(f.Path)),
			LicenseConcluded:   concluded,
			LicenseInfoInFiles: []string{concluded},
			FileCopyrightText:  orNoAssertion(f.Copyright),
		})
	}
	licenseList := make([]string, 0, len(licenseInfoFromFiles))
	for l := range licenseInfoFromFiles {
		licenseList = append(licenseList, l)
	}
	sort.Strings(licenseList)

	var otherLicenses []*spdx22.OtherLicense
	refIDs := make([]string, 0, len(d.LicenseRefs))
	for ref := range d.LicenseRefs {
		refIDs = append(refIDs, ref)
	}
	sort.Strings(refIDs)
	for _, ref := range refIDs {
		otherLicenses = append(otherLicenses, &spdx22.OtherLicense{
			LicenseIdentifier: ref,
			ExtractedText:     d.LicenseRefs[ref],
		})
	}

	doc := spdx22.Document{
		SPDXVersion:       "SPDX-2.2",
		DataLicense:       "CC0-1.0",
		SPDXIdentifier:    common.ElementID("DOCUMENT"),
		DocumentName:      fmt.Sprintf("%s-%s-debian", d.PackageName, d.PackageVersion),
		DocumentNamespace: fmt.Sprintf("https://aliens4friends/spdxdocs/%s-%s-debian", d.PackageName, d.PackageVersion),
		CreationInfo: &spdx22.CreationInfo{
			Creators: []common.Creator{{Creator: "a4f", CreatorType: "Tool"}},
			Created:  time.Now().UTC().Format(time.RFC3339),
		},
		Packages: []*spdx22.Package{{
			PackageName:                 d.PackageName,
			PackageSPDXIdentifier:       pkgID,
			PackageVersion:              d.PackageVersion,
			PackageDownloadLocation:     "NOASSERTION",
			FilesAnalyzed:               true,
			IsFilesAnalyzedTagPresent:   true,
			PackageLicenseConcluded:     "NOASSERTION",
			PackageLicenseInfoFromFiles: licenseList,
			PackageLicenseDeclared:      normalizeLicense(d.PackageLicense),
			PackageCopyrightText:        "NOASSERTION",
			Files:                       files,
		}},
		OtherLicenses: otherLicenses,
	}
	return tagvalue.Write(&doc, w)
}

// sanitizeElementID turns an archive path into a valid SPDX element ID
// ("SPDXRef-[idstring]" allows only letters, digits and '.'/'-').
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

func orNoAssertion(s string) string {
	if s == "" {
		return "NOASSERTION"
	}
	return s
}
