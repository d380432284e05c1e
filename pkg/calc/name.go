// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package calc

import (
	"sort"
	"strings"
)

// debianSuffixes lists common Debian source/binary package name suffixes
// that should not penalize an otherwise-exact name match, such as a "-dev"
// split package. The "lib" prefix is handled in stripDebianConventions.
var debianSuffixes = []string{"-dev", "-dbg", "-doc", "-utils", "-bin", "-common", "-data"}

// aliasTable covers a handful of well-known Debian source-package aliases
// that diverge from the upstream project name. Real deployments load a
// richer table; this is the seed the matcher ships with.
var aliasTable = map[string][]string{
	"zlib":    {"zlib1g"},
	"openssl": {"libssl"},
	"sqlite":  {"sqlite3"},
	"curl":    {"libcurl4"},
	"libjpeg": {"libjpeg-turbo"},
}

func stripDebianConventions(name string) string {
	n := name
	for _, suf := range debianSuffixes {
		n = strings.TrimSuffix(n, suf)
	}
	if strings.HasPrefix(n, "lib") && len(n) > 3 {
		// "lib" is a packaging convention prefix in Debian for many
		// libraries; only strip it if doing so still leaves a
		// recognizable token (avoid turning "libc" into "c").
		stripped := strings.TrimPrefix(n, "lib")
		if len(stripped) >= 3 {
			n = stripped
		}
	}
	return n
}

// tokenize splits a package name on common separators into a lowercased,
// sorted set of tokens for a symmetric, order-insensitive comparison.
func tokenize(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	sort.Strings(fields)
	return fields
}

func tokenSimilarity(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	setA := map[string]int{}
	for _, t := range a {
		setA[t]++
	}
	setB := map[string]int{}
	for _, t := range b {
		setB[t]++
	}
	common := 0
	for t, ca := range setA {
		if cb, ok := setB[t]; ok {
			if ca < cb {
				common += ca
			} else {
				common += cb
			}
		}
	}
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	// Dice coefficient scaled to [0,100].
	return (2 * common * 100) / total
}

// levenshtein computes the classic edit distance; FuzzyPackageScore turns
// it into an edit score that it averages with the token score.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := curr[j-1] + 1
			if prev[j]+1 < min {
				min = prev[j] + 1
			}
			if prev[j-1]+cost < min {
				min = prev[j-1] + cost
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// namesMatchViaAlias reports whether a and b are linked by the alias table,
// in either direction.
func namesMatchViaAlias(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for k, aliases := range aliasTable {
		names := append([]string{k}, aliases...)
		hasA, hasB := false, false
		for _, n := range names {
			if n == a {
				hasA = true
			}
			if n == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// FuzzyPackageScore compares two candidate package names and returns a
// symmetric integer similarity in [0,100]. The comparison is
// token-based, adjusted for common Debian suffix/prefix conventions and a
// small alias table; the result is the equal-weight average of the token
// score and a Levenshtein-based score over the normalized strings.
func FuzzyPackageScore(a, b string) int {
	if strings.EqualFold(a, b) {
		return 100
	}
	if namesMatchViaAlias(a, b) {
		return 95
	}
	na, nb := stripDebianConventions(a), stripDebianConventions(b)
	if strings.EqualFold(na, nb) {
		return 97
	}
	tokenScore := tokenSimilarity(tokenize(na), tokenize(nb))

	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	editScore := 100
	if maxLen > 0 {
		dist := levenshtein(strings.ToLower(na), strings.ToLower(nb))
		editScore = 100 - (dist*100)/maxLen
		if editScore < 0 {
			editScore = 0
		}
	}
	score := (tokenScore + editScore) / 2
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// BestNameCandidate picks the candidate with the highest FuzzyPackageScore
// against primary/alternative alien names, breaking ties by shorter name
// then lexicographic order.
func BestNameCandidate(aliasNames []string, candidates []string) (best string, score int, ok bool) {
	bestScore := -1
	for _, cand := range candidates {
		s := 0
		for _, alien := range aliasNames {
			if fs := FuzzyPackageScore(alien, cand); fs > s {
				s = fs
			}
		}
		switch {
		case s > bestScore:
			bestScore, best, ok = s, cand, true
		case s == bestScore && ok:
			if len(cand) < len(best) || (len(cand) == len(best) && cand < best) {
				best = cand
			}
		}
	}
	return best, bestScore, ok
}
