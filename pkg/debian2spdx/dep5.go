// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package debian2spdx parses a Debian source package's DEP-5 machine-
// readable debian/copyright, together with debian/control, into an SPDX
// document. DEP-5 shares the control-file paragraph format, so the stanza
// walk is a control.Decoder loop over blank-line-delimited paragraphs.
package debian2spdx

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"pault.ag/go/debian/control"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

// Paragraph is one DEP-5 stanza: a set of fields, continuation
// lines already joined with newlines.
type Paragraph struct {
	Fields map[string]string
}

// Copyright is the parsed form of a Debian debian/copyright file: a header
// paragraph (carrying the Format: field), a set of
// Files: paragraphs (each applying to one or more glob patterns), and a set
// of stand-alone License: paragraphs defining LicenseRef-<id> full texts.
type Copyright struct {
	Format   string
	Upstream Paragraph
	Files    []FilesParagraph
	Licenses map[string]string // license short-name -> full text, for stand-alone paragraphs
}

// FilesParagraph is one "Files:" stanza: the glob patterns it applies to,
// the declared license expression, and the verbatim copyright text.
type FilesParagraph struct {
	Patterns  []string
	License   string
	Copyright string
}

// dep5FormatMarkers are substrings that identify a Format: field as the
// DEP-5 machine-readable copyright specification (the field value is a URL
// that varies by format revision).
var dep5FormatMarkers = []string{
	"copyright-format",
	"dep5",
}

// ParseCopyright reads a debian/copyright file and returns its DEP-5
// structure, or a4ferr.ErrCorruptInput wrapped as CopyrightNotMachineParseable
// if the Format: header is missing or doesn't identify DEP-5.
func ParseCopyright(r io.Reader) (*Copyright, error) {
	paragraphs, err := scanParagraphs(r)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "CopyrightNotMachineParseable: %v", err)
	}
	if len(paragraphs) == 0 {
		return nil, errors.Wrap(a4ferr.ErrCorruptInput, "CopyrightNotMachineParseable: empty debian/copyright")
	}
	header := paragraphs[0]
	format := header.Fields["Format"]
	if !looksLikeDep5(format) {
		return nil, errors.Wrap(a4ferr.ErrCorruptInput, "CopyrightNotMachineParseable: missing or unrecognized Format header")
	}
	cp := &Copyright{Format: format, Upstream: header, Licenses: map[string]string{}}
	for _, p := range paragraphs[1:] {
		if filesField, ok := p.Fields["Files"]; ok {
			cp.Files = append(cp.Files, FilesParagraph{
				Patterns:  strings.Fields(filesField),
				License:   strings.TrimSpace(firstLine(p.Fields["License"])),
				Copyright: p.Fields["Copyright"],
			})
			if lic := p.Fields["License"]; lic != "" {
				captureStandalone(cp, lic)
			}
			continue
		}
		if lic, ok := p.Fields["License"]; ok {
			captureStandalone(cp, lic)
		}
	}
	return cp, nil
}

// captureStandalone records a stand-alone License paragraph's full text
// under its short name, when the paragraph is written as
// "License: <short-name>\n<full text...>", the source of a LicenseRef.
func captureStandalone(cp *Copyright, licenseField string) {
	shortName, text, found := strings.Cut(licenseField, "\n")
	shortName = strings.TrimSpace(shortName)
	if !found || shortName == "" || strings.ContainsAny(shortName, " \t") {
		return
	}
	if _, exists := cp.Licenses[shortName]; !exists {
		cp.Licenses[shortName] = strings.TrimSpace(text)
	}
}

func looksLikeDep5(format string) bool {
	lower := strings.ToLower(format)
	if lower == "" {
		return false
	}
	for _, marker := range dep5FormatMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// scanParagraphs decodes r's blank-line separated control stanzas into
// Paragraphs, normalizing each field value: continuation lines trimmed, the
// "." blank-line marker mapped back to an empty line.
func scanParagraphs(r io.Reader) ([]Paragraph, error) {
	dec, err := control.NewDecoder(r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading debian/copyright")
	}
	var paragraphs []Paragraph
	for {
		var stanza struct {
			control.Paragraph
		}
		if err := dec.Decode(&stanza); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "decoding debian/copyright stanza")
		}
		if len(stanza.Values) == 0 {
			continue
		}
		fields := make(map[string]string, len(stanza.Values))
		for key, value := range stanza.Values {
			fields[key] = normalizeFieldValue(value)
		}
		paragraphs = append(paragraphs, Paragraph{Fields: fields})
	}
	return paragraphs, nil
}

// normalizeFieldValue trims each line of a multi-line control value and maps
// the DEP-5 "." continuation marker to an empty line.
func normalizeFieldValue(value string) string {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "." {
			line = ""
		}
		lines[i] = line
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExpandFiles resolves every FilesParagraph's glob patterns against the
// actual archive tree, returning one entry per concrete path;
// later Files: paragraphs override earlier ones for the same path, matching
// dpkg-copyright's "last match wins" convention.
func ExpandFiles(cp *Copyright, treePaths []string) map[string]FilesParagraph {
	result := map[string]FilesParagraph{}
	for _, fp := range cp.Files {
		for _, pattern := range fp.Patterns {
			for _, path := range treePaths {
				if globMatch(pattern, path) {
					result[path] = fp
				}
			}
		}
	}
	return result
}

// globMatch matches a DEP-5 glob (which permits '*' spanning path
// separators, unlike filepath.Match) against path.
func globMatch(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	segments := strings.Split(pattern, "*")
	idx := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		j := strings.Index(path[idx:], seg)
		if j < 0 {
			return false
		}
		if i == 0 && j != 0 {
			return false
		}
		idx += j + len(seg)
	}
	if last := segments[len(segments)-1]; last != "" && !strings.HasSuffix(path, last) {
		return false
	}
	return true
}

// PackageLicense computes the package-level declared license: the union of
// all distinct License: atoms, combined conservatively with AND.
func PackageLicense(cp *Copyright) string {
	seen := map[string]bool{}
	var atoms []string
	for _, fp := range cp.Files {
		for _, atom := range splitLicenseAtoms(fp.License) {
			if atom == "" || seen[atom] {
				continue
			}
			seen[atom] = true
			atoms = append(atoms, atom)
		}
	}
	if len(atoms) == 0 {
		return "NOASSERTION"
	}
	return strings.Join(atoms, " AND ")
}

func splitLicenseAtoms(expr string) []string {
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	var atoms []string
	for _, f := range fields {
		switch strings.ToUpper(f) {
		case "AND", "OR", "WITH":
			continue
		}
		atoms = append(atoms, f)
	}
	return atoms
}
