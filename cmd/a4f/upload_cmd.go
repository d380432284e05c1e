// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/internal/subproc"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
	"github.com/aliens4friends/a4f/pkg/clearing"

	"github.com/pkg/errors"
)

var flagUploadTokenName string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload packages and their SPDX to the clearing server",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client, err := newClearingClient(cmd.Context())
		if err != nil {
			return err
		}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, uploadStep(p, client))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("uploaded %d/%d packages", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

func init() {
	uploadCmd.Flags().StringVar(&flagUploadTokenName, "token-name", "a4f", "clearing-server API token name to request at login")
}

// newClearingClient builds a clearing.Client from FOSSY_* settings and
// exchanges FOSSY_USER/FOSSY_PASSWORD for a bearer token.
func newClearingClient(ctx context.Context) (*clearing.Client, error) {
	if app.settings.FossyServer == "" {
		return nil, errors.Wrap(a4ferr.ErrConfig, "FOSSY_SERVER is required")
	}
	basic := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
	retrying := &httpx.RetryingClient{BasicClient: basic}
	client := &clearing.Client{
		HTTP:       retrying,
		Server:     app.settings.FossyServer,
		GroupID:    app.settings.FossyGroupID,
		NameSuffix: app.settings.PackageIDExt,
	}
	if app.settings.FossyUser != "" {
		if err := client.Login(ctx, app.settings.FossyUser, app.settings.FossyPass, flagUploadTokenName); err != nil {
			return nil, errors.Wrap(err, "clearing-server login")
		}
	}
	return client, nil
}

// packFilesArchive repacks an AlienPackage's files/ tree into a gzip'd tar
// upload artifact, substituting for .tar.xz since no xz codec is available
// here (see pkg/debian2spdx/fetch.go's equivalent note).
func packFilesArchive(ap *alienpkg.AlienPackage) ([]byte, string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range ap.RawFiles {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, "", err
		}
		if _, err := tw.Write(content); err != nil {
			return nil, "", err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, "", err
	}
	if err := gz.Close(); err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// uploadStep packs and uploads a package's files/ tree, converts its alien
// SPDX document to RDF/XML via the external spdx-tools command and imports
// it onto the upload, schedules the clearing agents on a fresh upload, and
// marks the step done once accepted; clearing itself runs asynchronously
// and is polled by `a4f fossy`.
func uploadStep(p *pool.Pool, client *clearing.Client) pipeline.StepFunc {
	spdxTool := subproc.SpdxTool{Runner: subproc.ExecRunner{}, Command: app.settings.SpdxToolsCmd}
	return func(ctx context.Context, ref *session.PackageRef) error {
		ap, _, err := alienpkg.Open(p, ref.Identity.Name, ref.Identity.Version)
		if err != nil {
			return err
		}
		archive, sha256Hex, err := packFilesArchive(ap)
		if err != nil {
			return err
		}
		uploadID, reused, err := client.Upload(ctx, ref.Identity.Name, ref.Identity.Version, archive, sha256Hex,
			fmt.Sprintf("a4f: %s@%s", ref.Identity.Name, ref.Identity.Version))
		if err != nil {
			return err
		}
		if !reused {
			if err := client.ScheduleAgents(ctx, uploadID, clearing.AgentSet); err != nil {
				return err
			}
			if err := importAlienSPDX(ctx, p, ref, client, spdxTool, uploadID); err != nil {
				return err
			}
		}
		ref.Uploaded = true
		ref.MarkDone(session.StepUpload)
		return nil
	}
}

// importAlienSPDX converts the package's ALIEN_SPDX tag-value artifact to
// RDF/XML via the spdx-tools subprocess contract and imports it onto the
// clearing-server upload, the way the clearing-server's own web UI accepts
// an SPDX report alongside an upload. A package with no
// ALIEN_SPDX yet (spdxalien hasn't run) is skipped rather than failing the
// upload, since upload and SPDX synthesis may run out of order.
func importAlienSPDX(ctx context.Context, p *pool.Pool, ref *session.PackageRef, client *clearing.Client, spdxTool subproc.SpdxTool, uploadID int) error {
	alienSpdxPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.ALIEN_SPDX)
	if err != nil {
		return err
	}
	if !p.Exists(alienSpdxPath) {
		return nil
	}
	tagValue, err := p.Read(alienSpdxPath)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "a4f-spdx-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	tvPath, rdfPath := filepath.Join(dir, "alien.spdx"), filepath.Join(dir, "alien.rdf")
	if err := os.WriteFile(tvPath, tagValue, 0o644); err != nil {
		return err
	}
	if err := spdxTool.TagValueToRDF(ctx, tvPath, rdfPath); err != nil {
		return err
	}
	rdfxml, err := os.ReadFile(rdfPath)
	if err != nil {
		return err
	}
	if err := client.ImportSPDX(ctx, uploadID, rdfxml); err != nil {
		return err
	}
	return client.MakeOjoDecisions(ctx, uploadID)
}
