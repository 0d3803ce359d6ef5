// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pullclient

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opendsc/opendsc/pkg/core/cerr"
)

// BundleStore is the LCM's on-disk cache of the last configuration
// bundle pulled from a server, rooted under one data directory.
type BundleStore struct {
	dataDir string
}

// NewBundleStore returns a BundleStore rooted at dataDir, which is
// created if absent.
func NewBundleStore(dataDir string) (*BundleStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating bundle data dir: %w", err)
	}
	return &BundleStore{dataDir: dataDir}, nil
}

func (s *BundleStore) bundleDir() string    { return filepath.Join(s.dataDir, "bundle") }
func (s *BundleStore) checksumPath() string { return filepath.Join(s.dataDir, "bundle.checksum") }

// EntryPointPath returns the local path of entryPoint within the
// currently installed bundle.
func (s *BundleStore) EntryPointPath(entryPoint string) string {
	return filepath.Join(s.bundleDir(), entryPoint)
}

// StoredChecksum returns the manifest checksum of the currently
// installed bundle, and whether one is recorded at all.
func (s *BundleStore) StoredChecksum() (string, bool) {
	data, err := os.ReadFile(s.checksumPath())
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Refresh implements the Pull Client refresh flow (checksum check,
// conditional download, atomic extraction, checksum persistence) for
// one node's configuration. It returns whether a new bundle was
// installed and the local path of entryPoint to hand to the DSC
// executor.
func Refresh(ctx context.Context, c *Client, store *BundleStore, nodeID, entryPoint string) (changed bool, path string, err error) {
	manifestChecksum, err := c.FetchChecksum(ctx, nodeID)
	if err != nil {
		return false, "", err
	}

	entryPath := store.EntryPointPath(entryPoint)
	if stored, ok := store.StoredChecksum(); ok && stored == manifestChecksum {
		if _, statErr := os.Stat(entryPath); statErr == nil {
			return false, entryPath, nil
		}
	}

	tmp, err := os.CreateTemp(store.dataDir, "bundle-*.zip")
	if err != nil {
		return false, "", fmt.Errorf("creating temp bundle file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, _, err = c.FetchBundle(ctx, nodeID, tmp)
	closeErr := tmp.Close()
	if err != nil {
		return false, "", err
	}
	if closeErr != nil {
		return false, "", fmt.Errorf("closing temp bundle file: %w", closeErr)
	}

	stagingDir, err := os.MkdirTemp(store.dataDir, ".staging-*")
	if err != nil {
		return false, "", fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	if err := extractZip(tmpPath, stagingDir); err != nil {
		return false, "", cerr.Integrity(fmt.Errorf("extracting bundle: %w", err))
	}
	stagedEntryPath := filepath.Join(stagingDir, entryPoint)
	if _, err := os.Stat(stagedEntryPath); err != nil {
		return false, "", cerr.Integrity(fmt.Errorf("entry point %q missing from bundle: %w", entryPoint, err))
	}

	if err := os.RemoveAll(store.bundleDir()); err != nil {
		return false, "", fmt.Errorf("removing previous bundle: %w", err)
	}
	if err := os.Rename(stagingDir, store.bundleDir()); err != nil {
		return false, "", fmt.Errorf("swapping in new bundle: %w", err)
	}
	if err := os.WriteFile(store.checksumPath(), []byte(manifestChecksum), 0o600); err != nil {
		return false, "", fmt.Errorf("persisting checksum: %w", err)
	}
	return true, store.EntryPointPath(entryPoint), nil
}

// extractZip unpacks the archive at zipPath into destDir, rejecting
// any entry whose normalized path escapes destDir (a zip crafted with
// ".." segments or an absolute path, "zip slip"), since bundles are
// downloaded over the network and must not be trusted blindly.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			return fmt.Errorf("entry %q escapes destination directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return fmt.Errorf("creating directory %q: %w", f.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return fmt.Errorf("creating directory for %q: %w", f.Name, err)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %q: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %q: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing %q: %w", target, err)
	}
	return nil
}
