// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package cvecheck filters NVD CVE feeds by CPE 2.3 applicability against
// a (vendor, product, version) triple.
package cvecheck

import (
	"strings"

	debversion "pault.ag/go/debian/version"

	"github.com/aliens4friends/a4f/pkg/calc"
)

// CPEMatch is one cpeMatch entry of an NVD configurations node.
type CPEMatch struct {
	Criteria              string `json:"criteria"` // cpe:2.3:a:vendor:product:version:...
	VersionStartIncluding string `json:"versionStartIncluding,omitempty"`
	VersionStartExcluding string `json:"versionStartExcluding,omitempty"`
	VersionEndIncluding   string `json:"versionEndIncluding,omitempty"`
	VersionEndExcluding   string `json:"versionEndExcluding,omitempty"`
}

// Node is one configurations.nodes entry.
type Node struct {
	Operator string     `json:"operator"` // "OR" or "AND"
	Negate   bool       `json:"negate"`
	CPEMatch []CPEMatch `json:"cpeMatch"`
	Children []Node     `json:"children,omitempty"`
}

// CVE is one NVD feed entry, trimmed to what applicability matching needs.
type CVE struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
}

// Target is the (vendor, product, version) triple being checked.
type Target struct {
	Vendor  string
	Product string
	Version string
}

// Result is the applicability-check output: identified[] for clearly
// applicable CVEs, review[] for ones the matcher can't confidently resolve.
type Result struct {
	Identified []string `json:"identified"`
	Review     []string `json:"review"`
}

// cpeField is a parsed cpe:2.3 URI field list:
// cpe:2.3:<part>:<vendor>:<product>:<version>:<update>:<edition>:<lang>:<sw_edition>:<target_sw>:<target_hw>:<other>
type cpeField struct {
	part, vendor, product, version string
}

func parseCPE(criteria string) (cpeField, bool) {
	parts := strings.Split(criteria, ":")
	if len(parts) < 6 || parts[0] != "cpe" || parts[1] != "2.3" {
		return cpeField{}, false
	}
	return cpeField{part: parts[2], vendor: parts[3], product: parts[4], version: parts[5]}, true
}

// cpeFieldApplicable treats "*" as "any" and "-" as "not-applicable" when
// comparing a CPE URI field against a (vendor, product, version) target.
func cpeFieldApplicable(field, target string) bool {
	switch field {
	case "*":
		return true
	case "-":
		return false
	}
	return strings.EqualFold(field, target)
}

// matchResult distinguishes a clean match/non-match from "unsupported
// construct, needs review".
type matchResult int

const (
	noMatch matchResult = iota
	match
	needsReview
)

func matchCPE(m CPEMatch, t Target) matchResult {
	cpe, ok := parseCPE(m.Criteria)
	if !ok {
		return needsReview
	}
	if cpe.part != "a" && cpe.part != "*" {
		return noMatch
	}
	if !cpeFieldApplicable(cpe.vendor, t.Vendor) || !cpeFieldApplicable(cpe.product, t.Product) {
		return noMatch
	}
	if strings.Contains(cpe.version, "?") {
		return needsReview
	}
	if cpe.version != "*" && !cpeFieldApplicable(cpe.version, t.Version) {
		return noMatch
	}
	if !rangeApplicable(m, t.Version) {
		return noMatch
	}
	if rangeNeedsReview(m) {
		return needsReview
	}
	return match
}

// rangeNeedsReview reports whether a range field itself contains an
// unsupported wildcard construct.
func rangeNeedsReview(m CPEMatch) bool {
	for _, v := range []string{m.VersionStartIncluding, m.VersionStartExcluding, m.VersionEndIncluding, m.VersionEndExcluding} {
		if strings.Contains(v, "?") {
			return true
		}
	}
	return false
}

// rangeApplicable honors versionStart/EndIncluding/Excluding with
// Debian-style version comparison.
func rangeApplicable(m CPEMatch, version string) bool {
	if m.VersionStartIncluding != "" && versionCompare(version, m.VersionStartIncluding) < 0 {
		return false
	}
	if m.VersionStartExcluding != "" && versionCompare(version, m.VersionStartExcluding) <= 0 {
		return false
	}
	if m.VersionEndIncluding != "" && versionCompare(version, m.VersionEndIncluding) > 0 {
		return false
	}
	if m.VersionEndExcluding != "" && versionCompare(version, m.VersionEndExcluding) >= 0 {
		return false
	}
	return true
}

// versionCompare orders two version strings the way dpkg --compare-versions
// would. Strings Debian's parser rejects fall back to plain string ordering.
func versionCompare(a, b string) int {
	va, errA := debversion.Parse(calc.NormalizeVersion(a))
	vb, errB := debversion.Parse(calc.NormalizeVersion(b))
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return debversion.Compare(va, vb)
}

// evaluateNode walks a configurations node tree: OR on a single node
// is supported; AND or nodes carrying children go to the review bucket.
func evaluateNode(n Node, t Target) matchResult {
	if len(n.Children) > 0 {
		return needsReview
	}
	switch strings.ToUpper(n.Operator) {
	case "OR", "":
		worst := noMatch
		for _, m := range n.CPEMatch {
			r := matchCPE(m, t)
			if n.Negate {
				r = negateResult(r)
			}
			if r == match {
				return match
			}
			if r == needsReview {
				worst = needsReview
			}
		}
		return worst
	case "AND":
		return needsReview
	default:
		return needsReview
	}
}

func negateResult(r matchResult) matchResult {
	switch r {
	case match:
		return noMatch
	case noMatch:
		return match
	default:
		return needsReview
	}
}

// Applicable reports whether any node of cve's configurations applies to t,
// or whether evaluation needs human review due to an unsupported construct.
func Applicable(cve CVE, t Target) matchResult {
	worst := noMatch
	for _, n := range cve.Nodes {
		r := evaluateNode(n, t)
		if r == match {
			return match
		}
		if r == needsReview {
			worst = needsReview
		}
	}
	return worst
}

// Check filters a CVE feed against a target, bucketing each CVE into
// identified[] or review[]. CVEs that plainly don't apply are
// omitted from both.
func Check(cves []CVE, t Target) Result {
	var res Result
	for _, cve := range cves {
		switch Applicable(cve, t) {
		case match:
			res.Identified = append(res.Identified, cve.ID)
		case needsReview:
			res.Review = append(res.Review, cve.ID)
		}
	}
	return res
}
