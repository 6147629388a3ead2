// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package objstore provides the durable object store the pipeline
// archives into.  Keys are flat strings; a literal "/" inside a key
// creates a storage prefix, which is why archive keys never contain
// one.
package objstore

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// ErrNotFound reports a Get for a key with no stored object.
var ErrNotFound = errors.New("object not found")

// GCS is a Google Cloud Storage-backed store scoped to one bucket.
type GCS struct {
	bucket *storage.BucketHandle
}

func NewGCS(ctx context.Context, bucketName string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create storage client")
	}
	return &GCS{bucket: client.Bucket(bucketName)}, nil
}

// Get returns the bytes stored under key, or ErrNotFound.
func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "get %q", key)
		}
		return nil, errors.Wrapf(err, "unable to read object %q", key)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read object %q", key)
	}
	return data, nil
}

// Put stores data under key, overwriting any existing object.
// Overwriting is deliberate: archive keys are deterministic, so a
// reprocessed attachment lands on its previous key instead of
// duplicating the record.
func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "unable to write object %q", key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "unable to finalize object %q", key)
	}
	return nil
}
