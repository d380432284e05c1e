// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the filtered, lockable work list that gates
// which package identities a given a4f command processes. A Session is
// persisted as JSON under the Pool's session relationship: a small
// serialized state struct, loaded and saved whole on every mutation.
package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/pool"
)

// Step names a pipeline stage whose completion is tracked per package.
type Step string

const (
	StepAdd        Step = "add"
	StepMatch      Step = "match"
	StepSnapMatch  Step = "snapmatch"
	StepScan       Step = "scan"
	StepDelta      Step = "delta"
	StepSpdxDebian Step = "spdxdebian"
	StepSpdxAlien  Step = "spdxalien"
	StepUpload     Step = "upload"
	StepFossy      Step = "fossy"
	StepHarvest    Step = "harvest"
	StepCveCheck   Step = "cvecheck"
)

// Identity is the (name, version, variant?) primary key used throughout
// the system.
type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Variant string `json:"variant,omitempty"`
}

func (id Identity) String() string {
	if id.Variant != "" {
		return fmt.Sprintf("%s/%s/%s", id.Name, id.Version, id.Variant)
	}
	return fmt.Sprintf("%s/%s", id.Name, id.Version)
}

// PackageRef is one entry of the Session's work list: an identity plus the
// per-step completion flags and the last score computed for it (used by the
// score-gt filter predicate).
type PackageRef struct {
	Identity Identity      `json:"identity"`
	Steps    map[Step]bool `json:"steps,omitempty"`
	Score    int           `json:"score"`
	Uploaded bool          `json:"uploaded"`
}

// Done reports whether step has been recorded complete for this package.
func (r *PackageRef) Done(step Step) bool {
	if r.Steps == nil {
		return false
	}
	return r.Steps[step]
}

// MarkDone records step as complete for this package.
func (r *PackageRef) MarkDone(step Step) {
	if r.Steps == nil {
		r.Steps = map[Step]bool{}
	}
	r.Steps[step] = true
}

// Session is the persisted, lockable work list.
type Session struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	LockKey   string       `json:"lock_key,omitempty"`
	Packages  []PackageRef `json:"packages"`
}

// Create returns a new Session; if id is empty a random one is generated.
func Create(id string) *Session {
	if id == "" {
		id = randomID()
	}
	return &Session{ID: id, CreatedAt: time.Now()}
}

func randomID() string {
	return "s-" + uuid.NewString()
}

// sessionPath is the logical Pool path a Session is stored at.
func sessionPath(id string) string {
	return fmt.Sprintf("session/%s/%s/%s.%s", id, id, id, pool.SESSION_JSON)
}

// Save persists s to p.
func (s *Session) Save(p *pool.Pool) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling session")
	}
	return p.Write(sessionPath(s.ID), b, pool.Overwrite)
}

// Load reads a previously Saved Session by id.
func Load(p *pool.Pool, id string) (*Session, error) {
	b, err := p.Read(sessionPath(id))
	if err != nil {
		return nil, errors.Wrapf(err, "loading session %s", id)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "parsing session %s: %v", id, err)
	}
	return &s, nil
}

// Lock sets the session's lock key, failing if one is already set and
// differs from key (unless force is true).
func (s *Session) Lock(key string, force bool) error {
	if s.LockKey != "" && s.LockKey != key && !force {
		return errors.Wrapf(a4ferr.ErrLockConflict, "session %s is locked", s.ID)
	}
	s.LockKey = key
	return nil
}

// Unlock clears the session's lock key, requiring the current key unless
// force is set.
func (s *Session) Unlock(key string, force bool) error {
	if s.LockKey != "" && s.LockKey != key && !force {
		return errors.Wrapf(a4ferr.ErrLockConflict, "session %s is locked", s.ID)
	}
	s.LockKey = ""
	return nil
}

// CheckLock verifies key against the session's lock. Every command that
// mutates the work list or its per-step flags presents the configured key
// through here before touching the session.
func (s *Session) CheckLock(key string) error {
	return s.checkLock(key, false)
}

// checkLock verifies key against the session's lock before a mutating
// operation: mismatched tokens fail the operation.
func (s *Session) checkLock(key string, force bool) error {
	if s.LockKey == "" || force {
		return nil
	}
	if key != s.LockKey {
		return errors.Wrapf(a4ferr.ErrLockConflict, "session %s: lock key mismatch", s.ID)
	}
	return nil
}

// Populate adds every Pool-known (name, version) pair matching the glob
// patterns to the session's package list, skipping identities already
// present.
func (s *Session) Populate(p *pool.Pool, globName, globVersion string, key string, force bool) error {
	if err := s.checkLock(key, force); err != nil {
		return err
	}
	pattern := fmt.Sprintf("userland/%s/%s/*.%s", globName, globVersion, pool.ALIENSRC)
	matches, err := p.Glob(pattern)
	if err != nil {
		return err
	}
	existing := map[Identity]bool{}
	for _, ref := range s.Packages {
		existing[ref.Identity] = true
	}
	for _, m := range matches {
		name, version, ok := nameVersionFromUserlandPath(m)
		if !ok {
			continue
		}
		id := Identity{Name: name, Version: version}
		if existing[id] {
			continue
		}
		s.Packages = append(s.Packages, PackageRef{Identity: id})
		existing[id] = true
	}
	return nil
}

// nameVersionFromUserlandPath extracts (name, version) from a logical
// userland/<name>/<version>/<basename>.aliensrc Pool path.
func nameVersionFromUserlandPath(path string) (name, version string, ok bool) {
	parts := splitSlash(path)
	if len(parts) < 3 || parts[0] != "userland" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func splitSlash(path string) []string {
	return strings.Split(path, "/")
}

// Predicate is a Session.Filter predicate, drawn from a closed set.
type Predicate struct {
	ScoreGt      *int
	Include      []string
	Exclude      []string
	OnlyUploaded bool
}

// Filter applies pred to the session's package list in place.
func (s *Session) Filter(pred Predicate, key string, force bool) error {
	if err := s.checkLock(key, force); err != nil {
		return err
	}
	var kept []PackageRef
	includeSet := toSet(pred.Include)
	excludeSet := toSet(pred.Exclude)
	for _, ref := range s.Packages {
		if pred.ScoreGt != nil && ref.Score <= *pred.ScoreGt {
			continue
		}
		if len(includeSet) > 0 && !includeSet[ref.Identity.Name] {
			continue
		}
		if excludeSet[ref.Identity.Name] {
			continue
		}
		if pred.OnlyUploaded && !ref.Uploaded {
			continue
		}
		kept = append(kept, ref)
	}
	s.Packages = kept
	return nil
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

// AddVariants extends the package list with every Pool-known
// (name, version, variant) triple sharing (name, version) with an existing
// member.
func (s *Session) AddVariants(p *pool.Pool, key string, force bool) error {
	if err := s.checkLock(key, force); err != nil {
		return err
	}
	existing := map[Identity]bool{}
	for _, ref := range s.Packages {
		existing[ref.Identity] = true
	}
	var additions []PackageRef
	for _, ref := range s.Packages {
		pattern := fmt.Sprintf("userland/%s/%s-*/*.%s", ref.Identity.Name, ref.Identity.Version, pool.ALIENSRC)
		matches, err := p.Glob(pattern)
		if err != nil {
			return err
		}
		for _, m := range matches {
			parts := splitSlash(m)
			if len(parts) < 3 {
				continue
			}
			variant := strings.TrimPrefix(parts[2], ref.Identity.Version+"-")
			id := Identity{Name: ref.Identity.Name, Version: ref.Identity.Version, Variant: variant}
			if existing[id] {
				continue
			}
			additions = append(additions, PackageRef{Identity: id})
			existing[id] = true
		}
	}
	s.Packages = append(s.Packages, additions...)
	return nil
}

// ReportCsv renders the session's package list (name, version, variant,
// score, uploaded) as CSV rows after a header row, sorted by name then
// version for deterministic output.
func (s *Session) ReportCsv() [][]string {
	sorted := make([]PackageRef, len(s.Packages))
	copy(sorted, s.Packages)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Identity.Name != sorted[j].Identity.Name {
			return sorted[i].Identity.Name < sorted[j].Identity.Name
		}
		return sorted[i].Identity.Version < sorted[j].Identity.Version
	})
	rows := [][]string{{"name", "version", "variant", "score", "uploaded"}}
	for _, ref := range sorted {
		rows = append(rows, []string{
			ref.Identity.Name,
			ref.Identity.Version,
			ref.Identity.Variant,
			fmt.Sprintf("%d", ref.Score),
			fmt.Sprintf("%v", ref.Uploaded),
		})
	}
	return rows
}
