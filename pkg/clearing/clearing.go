// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package clearing orchestrates an external Fossology-like clearing server:
// upload, agent scheduling, SPDX import, Ojo auto-decisions, and polling a
// per-upload job report to completion. The HTTP plumbing is built on
// internal/httpx.BasicClient composed with internal/ratex's backoff
// rather than a bespoke client.
package clearing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/ratex"
)

// JobStatus is a clearing-server job's terminal/non-terminal state.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// AgentSet is the fixed set of agents scheduled after every upload.
var AgentSet = []string{"monk", "nomos", "ojo", "copyright", "ojo_decider"}

// FileFinding is one clearing-server per-file agent finding or human
// conclusion.
type FileFinding struct {
	Path          string   `json:"path"`
	AgentFindings []string `json:"agentFindings"`
	Conclusions   []string `json:"conclusions"`
}

// Report is the per-identity clearing state snapshot.
type Report struct {
	UploadID          int           `json:"upload_id"`
	MainLicense       string        `json:"main_license"`
	TotalLicenses     int           `json:"total_licenses"`
	UniqueLicenses    int           `json:"unique_licenses"`
	ConcludedLicenses int           `json:"concluded_licenses"`
	FilesCleared      int           `json:"files_cleared"`
	FilesToBeCleared  int           `json:"files_to_be_cleared"`
	CopyrightCount    int           `json:"copyright_count"`
	Files             []FileFinding `json:"files"`
}

// Client talks to the clearing server over HTTP. GroupID and Server come
// from FOSSY_GROUP_ID / FOSSY_SERVER; HTTP is typically an
// httpx.RetryingClient wrapping an httpx.WithUserAgent.
type Client struct {
	HTTP    httpx.BasicClient
	Server  string
	GroupID string
	Token   string // Fossology REST API token, derived from FOSSY_USER/FOSSY_PASSWORD at login

	// NameSuffix, from PACKAGE_ID_EXT, is appended to every upload name.
	NameSuffix string

	// PollInterval configures the initial bounded-exponential poll period;
	// defaults to 2s with a 60s cap.
	PollInterval time.Duration
	PollCap      time.Duration
}

func (c *Client) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return 2 * time.Second
}

func (c *Client) pollCap() time.Duration {
	if c.PollCap > 0 {
		return c.PollCap
	}
	return 60 * time.Second
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s%s", c.Server, path)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rdr)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(a4ferr.ErrNetwork, "%s %s: %v", method, path, err)
	}
	return resp, nil
}

// Login exchanges FOSSY_USER/FOSSY_PASSWORD for a REST API bearer token and
// stores it on c, per the Fossology REST API's /tokens endpoint.
func (c *Client) Login(ctx context.Context, user, password, tokenName string) error {
	payload, err := json.Marshal(map[string]string{
		"username":   user,
		"password":   password,
		"tokenName":  tokenName,
		"tokenScope": "write",
	})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/tokens", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("login: %s", resp.Status)
	}
	var token struct {
		Token string `json:"Authorization"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return errors.Wrap(err, "decoding login response")
	}
	c.Token = token.Token
	return nil
}

// uploadName is the deterministic, purl-subset upload name, extended with
// the PACKAGE_ID_EXT suffix when configured so parallel deployments sharing
// one clearing server don't collide.
func (c *Client) uploadName(name, version string) string {
	n := fmt.Sprintf("%s@%s", name, version)
	if c.NameSuffix != "" {
		n += "-" + c.NameSuffix
	}
	return n
}

// findUpload looks up an existing upload by name, returning (id, true) if
// one exists with a matching hash.
func (c *Client) findUpload(ctx context.Context, name, version, sha256 string) (int, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/uploads?q=%s", c.uploadName(name, version)), nil)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode >= 400 {
		return 0, false, errors.Errorf("findUpload: %s", resp.Status)
	}
	var results []struct {
		ID   int `json:"id"`
		Hash struct {
			SHA256 string `json:"sha256"`
		} `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, false, errors.Wrap(err, "decoding findUpload response")
	}
	for _, r := range results {
		if sha256 == "" || r.Hash.SHA256 == sha256 {
			return r.ID, true, nil
		}
	}
	return 0, false, nil
}

// Upload uploads archive (already packed as .tar.xz, files/ subtree at its
// root) under the deterministic upload name, reusing an
// existing upload if one with a matching hash is found.
func (c *Client) Upload(ctx context.Context, name, version string, archive []byte, archiveSha256, description string) (uploadID int, reused bool, err error) {
	if id, found, err := c.findUpload(ctx, name, version, archiveSha256); err != nil {
		return 0, false, err
	} else if found {
		return id, true, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/v1/uploads"), bytes.NewReader(archive))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("folderId", "1")
	req.Header.Set("uploadDescription", description)
	req.Header.Set("public", "public")
	req.Header.Set("groupName", c.GroupID)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, false, errors.Wrapf(a4ferr.ErrNetwork, "uploading %s: %v", c.uploadName(name, version), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, false, errors.Errorf("upload failed: %s", resp.Status)
	}
	var created struct {
		Message int `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, false, errors.Wrap(err, "decoding upload response")
	}
	return created.Message, false, nil
}

// ScheduleAgents schedules the given agent set (normally clearing.AgentSet)
// against uploadID.
func (c *Client) ScheduleAgents(ctx context.Context, uploadID int, agents []string) error {
	payload, err := json.Marshal(map[string]any{"uploadId": uploadID, "analysis": agentFlags(agents)})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/jobs", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("scheduling agents: %s", resp.Status)
	}
	return nil
}

func agentFlags(agents []string) map[string]bool {
	flags := make(map[string]bool, len(agents))
	for _, a := range agents {
		flags[a] = true
	}
	return flags
}

// ImportSPDX imports an RDF/XML SPDX document (already converted from
// Tag-Value by the external SPDX tool) for uploadID; concluded
// licenses in it become concluded decisions server-side.
func (c *Client) ImportSPDX(ctx context.Context, uploadID int, rdfxml []byte) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/uploads/%d/actions/import-spdx", uploadID), rdfxml)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("importing SPDX: %s", resp.Status)
	}
	return nil
}

// MakeOjoDecisions triggers the ojo_decider agent's bulk auto-decision
// pass for uploadID.
func (c *Client) MakeOjoDecisions(ctx context.Context, uploadID int) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/uploads/%d/actions/ojo-decisions", uploadID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("making ojo decisions: %s", resp.Status)
	}
	return nil
}

func (c *Client) jobStatus(ctx context.Context, uploadID int) (JobStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/jobs?upload=%d", uploadID), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return "", errors.Wrapf(a4ferr.ErrServiceUnavailable, "job status: %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return "", errors.Errorf("job status: %s", resp.Status)
	}
	var jobs []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return "", errors.Wrap(err, "decoding job status")
	}
	if len(jobs) == 0 {
		return JobQueued, nil
	}
	for _, j := range jobs {
		if JobStatus(j.Status) == JobFailed {
			return JobFailed, nil
		}
	}
	for _, j := range jobs {
		if JobStatus(j.Status) != JobCompleted {
			return JobRunning, nil
		}
	}
	return JobCompleted, nil
}

// Report polls job status until terminal with bounded-exponential backoff,
// then fetches and returns the FossyReport.
func (c *Client) Report(ctx context.Context, uploadID int) (*Report, error) {
	backoff := &ratex.Backoff{Base: c.pollInterval(), Cap: c.pollCap()}
	failures := 0
	for {
		status, err := c.jobStatus(ctx, uploadID)
		if err != nil && !errors.Is(err, a4ferr.ErrServiceUnavailable) {
			return nil, err
		}
		if err != nil {
			if failures++; failures >= 3 {
				return nil, err
			}
		}
		if err == nil {
			failures = 0
			if status == JobFailed {
				return nil, errors.Wrapf(a4ferr.ErrServiceUnavailable, "clearing job for upload %d failed", uploadID)
			}
			if status == JobCompleted {
				break
			}
		}
		if err := backoff.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.fetchReport(ctx, uploadID)
}

func (c *Client) fetchReport(ctx context.Context, uploadID int) (*Report, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/uploads/%d/licenses", uploadID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("fetching report: %s", resp.Status)
	}
	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, errors.Wrap(err, "decoding report")
	}
	report.UploadID = uploadID
	return &report, nil
}
