// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package calc implements the pure scoring functions used by the Debian
// matchers: fuzzy_package_score and version_distance. Both are
// deterministic and side-effect free so they can be fuzzed and unit tested
// in isolation from any network or Pool state.
package calc

import (
	"regexp"
	"strconv"
	"strings"

	debversion "pault.ag/go/debian/version"
)

// parsedVersion is the (epoch, upstream, revision) decomposition Debian
// version comparison needs, built on top of pault.ag/go/debian/version's
// Debian-version parser rather than a hand-rolled splitter.
type parsedVersion struct {
	epoch    uint
	upstream string
	revision string
}

func parseVersion(s string) parsedVersion {
	v, err := debversion.Parse(s)
	if err != nil {
		// Debian version parsing is lenient by design, since alien version
		// strings aren't guaranteed to be well-formed; fall back to
		// treating the whole string as the upstream component.
		return parsedVersion{upstream: s}
	}
	return parsedVersion{epoch: v.Epoch, upstream: v.Version, revision: v.Revision}
}

var (
	numericRunRe       = regexp.MustCompile(`[0-9]+`)
	preReleaseMarkerRe = regexp.MustCompile(`(?i)dfsg|~|\+|-rc[0-9]*`)
)

// segments splits an upstream (or revision) version component into its
// numeric runs, e.g. "1.2.11" -> [1, 2, 11]. Non-numeric separators are
// discarded; this mirrors dpkg's own digit/non-digit alternation without
// trying to reproduce its full string-comparison semantics (the distance
// formula only needs step counts per epoch/major/minor/revision, not full
// ordering).
func segments(s string) []int {
	matches := numericRunRe.FindAllString(s, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func stepDistance(a, b []int, weight int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	dist := 0
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av == bv {
			continue
		}
		diff := av - bv
		if diff < 0 {
			diff = -diff
		}
		// First differing segment after the first two (epoch handled
		// separately, index 0 is "major", index 1 is "minor") counts as a
		// revision-level step; everything collapses to the same weights:
		// major=100/step, minor=10/step, revision=1/step.
		switch i {
		case 0:
			dist += diff * weight
		case 1:
			dist += diff * (weight / 10)
		default:
			dist += diff * max(weight/100, 1)
		}
	}
	return dist
}

// VersionDistance computes the non-negative integer distance between two
// Debian-style version strings:
//
//	epoch change            = 1000
//	differing upstream major = 100 per major step
//	minor                    = 10 per minor step
//	revision                 = 1 per revision step
//	dfsg/~/+/-rcN pre-release markers = +5
//
// VersionDistance is symmetric and VersionDistance(v, v) == 0 for all v.
func VersionDistance(a, b string) int {
	if a == b {
		return 0
	}
	pa, pb := parseVersion(a), parseVersion(b)
	dist := 0
	if pa.epoch != pb.epoch {
		dist += 1000
	}
	dist += stepDistance(segments(pa.upstream), segments(pb.upstream), 100)
	dist += stepDistance(segments(pa.revision), segments(pb.revision), 1)
	if preReleaseMarkerRe.MatchString(a) != preReleaseMarkerRe.MatchString(b) {
		dist += 5
	}
	if dist == 0 && (pa.upstream != pb.upstream || pa.revision != pb.revision) {
		// Segment-only comparison found no numeric differences (e.g. a
		// bare suffix differs) but the strings are not equal: still count
		// as a minimal, non-zero distance so identical-looking versions
		// with different textual suffixes aren't reported as exact matches.
		dist = 1
	}
	return dist
}

// VersionScore maps a version distance to a score in [0,100]:
// max(0, 100-distance) clamped to a floor so that distance<=10 maps to
// >=99.
func VersionScore(distance int) int {
	if distance <= 10 {
		score := 100 - distance
		if score < 99 {
			score = 99
		}
		return score
	}
	score := 100 - distance
	if score < 0 {
		score = 0
	}
	return score
}

// IsPreRelease reports whether v carries one of the Debian pre-release
// markers (dfsg, ~, +, -rcN).
func IsPreRelease(v string) bool {
	return preReleaseMarkerRe.MatchString(v)
}

// NormalizeVersion strips a Debian binary non-maintainer rebuild suffix
// (e.g. "+b1") before guessing a .dsc URL, so that version comparisons
// aren't thrown off by build-only respins.
func NormalizeVersion(v string) string {
	return strings.TrimSpace(binaryRespinRe.ReplaceAllString(v, ""))
}

var binaryRespinRe = regexp.MustCompile(`(\+b[\d.]+)$`)
