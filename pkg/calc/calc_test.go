// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package calc

import "testing"

func TestVersionDistanceIdentity(t *testing.T) {
	for _, v := range []string{"1.2.11", "2.0.0-1", "1:1.2.3+dfsg-2", "0.9~rc1"} {
		if d := VersionDistance(v, v); d != 0 {
			t.Errorf("VersionDistance(%q, %q) = %d, want 0", v, v, d)
		}
	}
}

func TestVersionDistanceSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"1.2.11", "1.2.12"},
		{"2.0.0-1", "2.1.0-1"},
		{"1:1.0", "2:1.0"},
		{"1.0~rc1", "1.0"},
	}
	for _, p := range pairs {
		d1 := VersionDistance(p[0], p[1])
		d2 := VersionDistance(p[1], p[0])
		if d1 != d2 {
			t.Errorf("VersionDistance(%q,%q)=%d != VersionDistance(%q,%q)=%d", p[0], p[1], d1, p[1], p[0], d2)
		}
	}
}

func TestVersionScoreThreshold(t *testing.T) {
	tests := []struct {
		distance int
		want     int
	}{
		{0, 100},
		{10, 99},
		{5, 99},
		{11, 89},
		{100, 0},
		{200, 0},
	}
	for _, tt := range tests {
		if got := VersionScore(tt.distance); got != tt.want {
			t.Errorf("VersionScore(%d) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}

func TestVersionDistanceMinorStep(t *testing.T) {
	// A single minor-version bump (e.g. zlib 1.2.11 -> 1.2.12) should be a
	// small distance, resulting in a near-perfect match score.
	d := VersionDistance("1.2.11", "1.2.12")
	if d <= 0 || d > 10 {
		t.Errorf("VersionDistance(1.2.11, 1.2.12) = %d, want in (0,10]", d)
	}
	if s := VersionScore(d); s < 99 {
		t.Errorf("VersionScore(%d) = %d, want >= 99", d, s)
	}
}

func TestVersionDistanceEpoch(t *testing.T) {
	d := VersionDistance("1:1.0", "2:1.0")
	if d < 1000 {
		t.Errorf("VersionDistance with differing epoch = %d, want >= 1000", d)
	}
}

func TestIsPreRelease(t *testing.T) {
	tests := map[string]bool{
		"1.2.11":      false,
		"1.2.11+dfsg": true,
		"1.2.11~rc1":  true,
		"1.2.11-rc2":  true,
		"2.0.0":       false,
	}
	for v, want := range tests {
		if got := IsPreRelease(v); got != want {
			t.Errorf("IsPreRelease(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestNormalizeVersionStripsRespin(t *testing.T) {
	got := NormalizeVersion("1.2.11-2+b1")
	want := "1.2.11-2"
	if got != want {
		t.Errorf("NormalizeVersion = %q, want %q", got, want)
	}
}

func TestFuzzyPackageScoreSymmetricAndBounded(t *testing.T) {
	pairs := [][2]string{
		{"zlib", "zlib1g"},
		{"libjpeg", "libjpeg-turbo"},
		{"openssl", "libssl"},
		{"curl", "libcurl4"},
		{"foo-dev", "foo"},
		{"totally", "different"},
		{"sqlite", "sqlite3"},
	}
	for _, p := range pairs {
		s1 := FuzzyPackageScore(p[0], p[1])
		s2 := FuzzyPackageScore(p[1], p[0])
		if s1 != s2 {
			t.Errorf("FuzzyPackageScore(%q,%q)=%d != FuzzyPackageScore(%q,%q)=%d", p[0], p[1], s1, p[1], p[0], s2)
		}
		if s1 < 0 || s1 > 100 {
			t.Errorf("FuzzyPackageScore(%q,%q) = %d, out of [0,100]", p[0], p[1], s1)
		}
	}
}

func TestFuzzyPackageScoreExactMatch(t *testing.T) {
	if s := FuzzyPackageScore("zlib", "zlib"); s != 100 {
		t.Errorf("FuzzyPackageScore(zlib,zlib) = %d, want 100", s)
	}
	if s := FuzzyPackageScore("ZLib", "zlib"); s != 100 {
		t.Errorf("FuzzyPackageScore case-insensitive = %d, want 100", s)
	}
}

func TestFuzzyPackageScoreDebianSuffix(t *testing.T) {
	s := FuzzyPackageScore("foo-dev", "foo")
	if s < 90 {
		t.Errorf("FuzzyPackageScore(foo-dev, foo) = %d, want >= 90", s)
	}
}

func TestBestNameCandidate(t *testing.T) {
	best, score, ok := BestNameCandidate([]string{"zlib"}, []string{"totally-unrelated", "zlib1g", "another-one"})
	if !ok {
		t.Fatal("BestNameCandidate returned ok=false")
	}
	if best != "zlib1g" {
		t.Errorf("BestNameCandidate best = %q, want zlib1g", best)
	}
	if score < 90 {
		t.Errorf("BestNameCandidate score = %d, want >= 90", score)
	}
}

func TestBestNameCandidateNoCandidates(t *testing.T) {
	_, _, ok := BestNameCandidate([]string{"zlib"}, nil)
	if ok {
		t.Error("BestNameCandidate with no candidates should return ok=false")
	}
}
