// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package debian2spdx

import (
	"strings"
	"sync"

	classifier "github.com/google/licenseclassifier/v2"
	"github.com/google/licenseclassifier/v2/assets"
)

// confidenceThreshold is the minimum classifier match confidence accepted
// as a license determination, matching dpkg-copyright's fallback analyzer.
const confidenceThreshold = 0.9

var (
	classifierOnce   sync.Once
	sharedClassifier *classifier.Classifier
	classifierErr    error
)

func defaultClassifier() (*classifier.Classifier, error) {
	classifierOnce.Do(func() {
		sharedClassifier, classifierErr = assets.DefaultClassifier()
	})
	return sharedClassifier, classifierErr
}

// ClassifyFallback infers a license expression for a Files: paragraph whose
// License: field is blank, by matching fileText (the concatenated content
// of the files it covers) against the SPDX license corpus. DEP-5
// paragraphs with no explicit License: still need a best-effort
// declaration). Returns "NOASSERTION" if no match clears confidenceThreshold
// or the classifier corpus failed to load.
func ClassifyFallback(fileText string) string {
	if strings.TrimSpace(fileText) == "" {
		return "NOASSERTION"
	}
	c, err := defaultClassifier()
	if err != nil {
		return "NOASSERTION"
	}
	result, err := c.MatchFrom(strings.NewReader(fileText))
	if err != nil {
		return "NOASSERTION"
	}
	var best string
	var bestConfidence float64
	for _, m := range result.Matches {
		if m.Confidence >= confidenceThreshold && m.Confidence > bestConfidence {
			best = m.Name
			bestConfidence = m.Confidence
		}
	}
	if best == "" {
		return "NOASSERTION"
	}
	return best
}

// ExpandFilesWithFallback behaves like ExpandFiles, but resolves any entry
// whose License field is empty via ClassifyFallback against fileText(path),
// a caller-supplied accessor for the archive file's content (e.g. reading
// from the Pool).
func ExpandFilesWithFallback(cp *Copyright, treePaths []string, fileText func(path string) string) map[string]FilesParagraph {
	expanded := ExpandFiles(cp, treePaths)
	for path, fp := range expanded {
		if strings.TrimSpace(fp.License) != "" {
			continue
		}
		fp.License = ClassifyFallback(fileText(path))
		expanded[path] = fp
	}
	return expanded
}
