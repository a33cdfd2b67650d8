// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package storage persists committed similarity models so a restart can
// serve recommendations before its first rebuild.
//
// Snapshots are gob-encoded, gzip-compressed, and carry a SHA-256 checksum
// verified on load. Each committed model version is written to its own file
// (model_v{N}.gob); loads always pick the highest version present. All
// operations are safe for concurrent use.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dvenn/commendo/internal/recommend"
)

const (
	filePrefix = "model_v"
	fileSuffix = ".gob"
)

// SnapshotMetadata describes one persisted model file.
type SnapshotMetadata struct {
	// Version is the model version the snapshot holds.
	Version int `json:"version"`

	// BuiltAt is when the model was committed.
	BuiltAt time.Time `json:"built_at"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// ProductCount is the number of products in the model.
	ProductCount int `json:"product_count"`

	// PairCount is the number of similarity pairs retained.
	PairCount int `json:"pair_count"`

	// Checksum is the SHA-256 of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// snapshotFile is the on-disk format.
type snapshotFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// SnapshotStore persists similarity models under a directory.
type SnapshotStore struct {
	baseDir string
	mu      sync.RWMutex

	// latest is the highest version seen on disk, 0 when none.
	latest int
}

var _ recommend.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore opens (creating if needed) a snapshot store at baseDir
// and scans it for existing snapshots.
func NewSnapshotStore(baseDir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	s := &SnapshotStore{baseDir: baseDir}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing snapshots: %w", err)
	}
	return s, nil
}

// scan finds the highest snapshot version on disk.
func (s *SnapshotStore) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseSnapshotFilename(entry.Name()); ok && v > s.latest {
			s.latest = v
		}
	}
	return nil
}

// parseSnapshotFilename extracts the version from "model_v{N}.gob".
func parseSnapshotFilename(name string) (version int, ok bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	v, err := strconv.Atoi(name[len(filePrefix) : len(name)-len(fileSuffix)])
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

func (s *SnapshotStore) path(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s%d%s", filePrefix, version, fileSuffix))
}

// SaveModel persists the model under its version, superseding any previous
// snapshot of the same version.
func (s *SnapshotStore) SaveModel(ctx context.Context, m *recommend.SimilarityModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil || m.Version < 1 {
		return fmt.Errorf("model is nil or unversioned")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	raw := payload.Bytes()
	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := snapshotFile{
		Metadata: SnapshotMetadata{
			Version:      m.Version,
			BuiltAt:      m.BuiltAt,
			SavedAt:      time.Now(),
			ProductCount: len(m.Products),
			PairCount:    m.PairCount,
			Checksum:     hex.EncodeToString(hash[:]),
			SizeBytes:    int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	f, err := os.Create(s.path(m.Version)) //nolint:gosec // path built from the numeric version only
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after write surfaces via Encode

	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}

	if m.Version > s.latest {
		s.latest = m.Version
	}
	return nil
}

// LoadLatestModel returns the newest snapshot's model, or (nil, nil) when
// the store is empty.
func (s *SnapshotStore) LoadLatestModel(ctx context.Context) (*recommend.SimilarityModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == 0 {
		return nil, nil
	}

	f, err := os.Open(s.path(s.latest)) //nolint:gosec // path built from the numeric version only
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf snapshotFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var m recommend.SimilarityModel
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}

// LatestVersion returns the newest snapshot version, 0 when none exists.
func (s *SnapshotStore) LatestVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Prune removes old snapshots, keeping the newest keep versions.
func (s *SnapshotStore) Prune(ctx context.Context, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read snapshot directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseSnapshotFilename(entry.Name()); ok {
			versions = append(versions, v)
		}
	}
	if len(versions) <= keep {
		return nil
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	for _, v := range versions[keep:] {
		if err := os.Remove(s.path(v)); err != nil {
			return fmt.Errorf("remove snapshot v%d: %w", v, err)
		}
	}
	return nil
}
