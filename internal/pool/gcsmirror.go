// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// GCSMirror additionally uploads every local Write to a GCS bucket, fronting
// a bucket+prefix pair as a write-through mirror rather than a primary
// store: the Pool's billy.Filesystem remains the system of record and
// local reads never touch GCS.
type GCSMirror struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSMirror parses a "gs://bucket/prefix" URI and returns a Mirror ready
// to accompany a Pool.
func NewGCSMirror(ctx context.Context, gsURI string) (*GCSMirror, error) {
	if !strings.HasPrefix(gsURI, "gs://") {
		return nil, errors.Errorf("gcsmirror: %q is not a gs:// URI", gsURI)
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "gcsmirror: creating GCS client")
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(gsURI, "gs://"), "/")
	return &GCSMirror{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *GCSMirror) objectPath(poolPath string) string {
	return filepath.ToSlash(filepath.Join(m.prefix, poolPath))
}

// Put uploads data to the mirrored object for poolPath.
func (m *GCSMirror) Put(ctx context.Context, poolPath string, data []byte) error {
	obj := m.client.Bucket(m.bucket).Object(m.objectPath(poolPath))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "gcsmirror: writing %s", poolPath)
	}
	return errors.Wrapf(w.Close(), "gcsmirror: closing writer for %s", poolPath)
}

// Get fetches poolPath's mirrored content.
func (m *GCSMirror) Get(ctx context.Context, poolPath string) ([]byte, error) {
	r, err := m.client.Bucket(m.bucket).Object(m.objectPath(poolPath)).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "gcsmirror: reading %s", poolPath)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WithGCSMirror returns a shallow copy of p that additionally mirrors every
// subsequent Write to mirror, for optional off-host durability.
// The local write always lands first; a mirror upload failure is reported
// as Write's error even though the local artifact is already in place, so
// callers can surface/retry the mirror step without risking data loss.
func (p *Pool) WithGCSMirror(mirror *GCSMirror) *Pool {
	cp := *p
	cp.mirror = mirror
	return &cp
}
