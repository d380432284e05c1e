// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package cvecheck

import "testing"

func zlibTarget() Target {
	return Target{Vendor: "zlib", Product: "zlib", Version: "1.2.11"}
}

func TestMatchCPEExactVersion(t *testing.T) {
	m := CPEMatch{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"}
	if got := matchCPE(m, zlibTarget()); got != match {
		t.Fatalf("matchCPE = %v, want match", got)
	}
}

func TestMatchCPEVendorMismatch(t *testing.T) {
	m := CPEMatch{Criteria: "cpe:2.3:a:openssl:openssl:1.2.11:*:*:*:*:*:*:*"}
	if got := matchCPE(m, zlibTarget()); got != noMatch {
		t.Fatalf("matchCPE = %v, want noMatch", got)
	}
}

func TestMatchCPEWildcardVersionWithRange(t *testing.T) {
	m := CPEMatch{
		Criteria:              "cpe:2.3:a:zlib:zlib:*:*:*:*:*:*:*:*",
		VersionStartIncluding: "1.2.0",
		VersionEndExcluding:   "1.3.0",
	}
	if got := matchCPE(m, zlibTarget()); got != match {
		t.Fatalf("matchCPE = %v, want match (in range)", got)
	}
}

func TestMatchCPERangeExcludesOutOfBounds(t *testing.T) {
	m := CPEMatch{
		Criteria:            "cpe:2.3:a:zlib:zlib:*:*:*:*:*:*:*:*",
		VersionEndExcluding: "1.2.11",
	}
	if got := matchCPE(m, zlibTarget()); got != noMatch {
		t.Fatalf("matchCPE = %v, want noMatch (version equals exclusive end)", got)
	}
}

func TestMatchCPENotApplicableDash(t *testing.T) {
	m := CPEMatch{Criteria: "cpe:2.3:a:zlib:zlib:-:*:*:*:*:*:*:*"}
	if got := matchCPE(m, zlibTarget()); got != noMatch {
		t.Fatalf("matchCPE = %v, want noMatch for '-' version", got)
	}
}

func TestMatchCPEQuestionMarkNeedsReview(t *testing.T) {
	m := CPEMatch{Criteria: "cpe:2.3:a:zlib:zlib:1.2.1?:*:*:*:*:*:*:*"}
	if got := matchCPE(m, zlibTarget()); got != needsReview {
		t.Fatalf("matchCPE = %v, want needsReview for '?' wildcard", got)
	}
}

func TestMatchCPEFourComponentRange(t *testing.T) {
	target := Target{Vendor: "intel", Product: "sgx_dcap", Version: "1.10.100.4"}
	m := CPEMatch{
		Criteria:              "cpe:2.3:a:intel:sgx_dcap:*:*:*:*:*:*:*:*",
		VersionStartIncluding: "1.10.0.0",
		VersionEndExcluding:   "1.11.0.0",
	}
	if got := matchCPE(m, target); got != match {
		t.Fatalf("matchCPE = %v, want match for 1.10.100.4 in [1.10.0.0, 1.11.0.0)", got)
	}
}

func TestVersionCompareOrdersNumerically(t *testing.T) {
	if versionCompare("1.10.0", "1.9.0") <= 0 {
		t.Fatal("1.10.0 should order after 1.9.0")
	}
	if versionCompare("1.2.11", "1.2.11") != 0 {
		t.Fatal("equal versions should compare as 0")
	}
}

func TestEndExcludingMatchesOnlyBelow(t *testing.T) {
	m := CPEMatch{
		Criteria:            "cpe:2.3:a:zlib:zlib:*:*:*:*:*:*:*:*",
		VersionEndExcluding: "1.2.12",
	}
	for version, want := range map[string]matchResult{
		"1.2.11": match,
		"1.2.12": noMatch,
		"1.3.0":  noMatch,
	} {
		target := Target{Vendor: "zlib", Product: "zlib", Version: version}
		if got := matchCPE(m, target); got != want {
			t.Errorf("matchCPE(version=%s) = %v, want %v", version, got, want)
		}
	}
}

func TestEvaluateNodeORSupported(t *testing.T) {
	n := Node{
		Operator: "OR",
		CPEMatch: []CPEMatch{
			{Criteria: "cpe:2.3:a:openssl:openssl:1.0:*:*:*:*:*:*:*"},
			{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"},
		},
	}
	if got := evaluateNode(n, zlibTarget()); got != match {
		t.Fatalf("evaluateNode = %v, want match", got)
	}
}

func TestEvaluateNodeANDNeedsReview(t *testing.T) {
	n := Node{
		Operator: "AND",
		CPEMatch: []CPEMatch{{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"}},
	}
	if got := evaluateNode(n, zlibTarget()); got != needsReview {
		t.Fatalf("evaluateNode = %v, want needsReview for AND operator", got)
	}
}

func TestEvaluateNodeWithChildrenNeedsReview(t *testing.T) {
	n := Node{
		Operator: "OR",
		CPEMatch: []CPEMatch{{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"}},
		Children: []Node{{Operator: "OR"}},
	}
	if got := evaluateNode(n, zlibTarget()); got != needsReview {
		t.Fatalf("evaluateNode = %v, want needsReview when node has children", got)
	}
}

func TestCheckBucketsCorrectly(t *testing.T) {
	cves := []CVE{
		{ID: "CVE-A", Nodes: []Node{{Operator: "OR", CPEMatch: []CPEMatch{
			{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"},
		}}}},
		{ID: "CVE-B", Nodes: []Node{{Operator: "AND", CPEMatch: []CPEMatch{
			{Criteria: "cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"},
		}}}},
		{ID: "CVE-C", Nodes: []Node{{Operator: "OR", CPEMatch: []CPEMatch{
			{Criteria: "cpe:2.3:a:openssl:openssl:1.0:*:*:*:*:*:*:*"},
		}}}},
	}
	res := Check(cves, zlibTarget())
	if len(res.Identified) != 1 || res.Identified[0] != "CVE-A" {
		t.Errorf("Identified = %v, want [CVE-A]", res.Identified)
	}
	if len(res.Review) != 1 || res.Review[0] != "CVE-B" {
		t.Errorf("Review = %v, want [CVE-B]", res.Review)
	}
}
