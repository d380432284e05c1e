// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package harvest aggregates every per-package artifact produced by earlier
// pipeline steps into one dashboard-ready document, keyed by package
// identity and by build-matrix tag path.
package harvest

import "sort"

// BinaryAttribution is one Yocto binary package's attributed share of an
// alien source package's scan/audit state, read from TinfoilHat metadata.
type BinaryAttribution struct {
	Name          string   `json:"name"`
	FileCount     int      `json:"file_count"`
	Licenses      []string `json:"licenses"`
	AuditProgress float64  `json:"audit_progress"` // fraction of files cleared, [0,1]
}

// PackageHarvest is the per-identity aggregate of every prior step's
// output.
type PackageHarvest struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	MatchScore  float64             `json:"match_score,omitempty"`
	Similarity  float64             `json:"similarity,omitempty"`
	MainLicense string              `json:"main_license,omitempty"`
	Binaries    []BinaryAttribution `json:"binaries,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// Document is the full Harvest output: assembled per-identity
// aggregates, additionally indexed by build-matrix tag path.
type Document struct {
	Packages []PackageHarvest    `json:"packages"`
	ByTag    map[string][]string `json:"by_tag"` // tag -> package names sharing it
}

// Input is everything Harvester needs per package to produce one
// PackageHarvest entry; callers assemble it from Pool reads (MATCHER,
// DELTACODE, FOSSY_JSON, TINFOILHAT artifacts).
type Input struct {
	Name        string
	Version     string
	MatchScore  float64
	Similarity  float64
	MainLicense string
	Binaries    []BinaryAttribution
	Tags        []string
}

// Build assembles a Document from a set of per-package Inputs, optionally
// restricting output to named binaries (--with-binaries) and/or keeping
// only tagged releases plus one named snapshot tag (--filter-snapshot).
func Build(inputs []Input, filterSnapshot string, withBinaries []string) *Document {
	doc := &Document{ByTag: map[string][]string{}}
	withSet := toSet(withBinaries)
	for _, in := range inputs {
		tags := in.Tags
		if filterSnapshot != "" {
			tags = filterTags(tags, filterSnapshot)
			if len(tags) == 0 {
				continue
			}
		}
		binaries := in.Binaries
		if len(withSet) > 0 {
			binaries = filterBinaries(binaries, withSet)
			if len(binaries) == 0 {
				continue
			}
		}
		ph := PackageHarvest{
			Name:        in.Name,
			Version:     in.Version,
			MatchScore:  in.MatchScore,
			Similarity:  in.Similarity,
			MainLicense: in.MainLicense,
			Binaries:    binaries,
			Tags:        tags,
		}
		doc.Packages = append(doc.Packages, ph)
		for _, tag := range tags {
			doc.ByTag[tag] = append(doc.ByTag[tag], in.Name)
		}
	}
	sort.Slice(doc.Packages, func(i, j int) bool {
		if doc.Packages[i].Name != doc.Packages[j].Name {
			return doc.Packages[i].Name < doc.Packages[j].Name
		}
		return doc.Packages[i].Version < doc.Packages[j].Version
	})
	for tag := range doc.ByTag {
		sort.Strings(doc.ByTag[tag])
	}
	return doc
}

// filterTags keeps tags that look like a tagged release (contain a "/",
// the build-matrix hierarchy separator) plus the named snapshot tag, for
// --filter-snapshot.
func filterTags(tags []string, snapshot string) []string {
	var out []string
	for _, t := range tags {
		if t == snapshot || isTaggedRelease(t) {
			out = append(out, t)
		}
	}
	return out
}

func isTaggedRelease(tag string) bool {
	for _, r := range tag {
		if r == '/' {
			return true
		}
	}
	return false
}

func filterBinaries(binaries []BinaryAttribution, names map[string]bool) []BinaryAttribution {
	var out []BinaryAttribution
	for _, b := range binaries {
		if names[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
