// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bundlesvc materializes a node's resolved configuration (or a
// composite configuration and its children) into a deterministic zip
// archive, alongside the two checksums described by the pull protocol:
// a bundle checksum over the serialized archive bytes, and a manifest
// checksum a node may compare against without downloading the archive.
package bundlesvc

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/semver"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramsvc"
)

// zipEpoch is the earliest instant the zip format can address; every
// entry's modified time is pinned to it so two builds of the same
// inputs produce byte-identical archives.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// UseCase builds bundles for a node's assigned configuration.
type UseCase struct {
	pool       repo.Pool
	configs    repo.Configurations
	composites repo.Composites
	nodes      repo.Nodes
	params     *paramsvc.UseCase
}

// New instantiates the Bundle Builder.
func New(p repo.Pool, configs repo.Configurations, composites repo.Composites, nodes repo.Nodes, params *paramsvc.UseCase) *UseCase {
	return &UseCase{pool: p, configs: configs, composites: composites, nodes: nodes, params: params}
}

// Result is the outcome of a successful Build: the two independent
// checksums of the written archive.
type Result struct {
	BundleChecksum   string
	ManifestChecksum string
}

// entry is one file slated for the archive, already validated.
type entry struct {
	path    string
	content []byte
	sha256  string
}

// Build streams the bundle assigned to nodeID to w and returns its two
// checksums. It fails with a *cerr.Error wrapping cerr.KindNotFound if
// the node has no configuration assigned, and cerr.KindConflict if the
// assigned configuration (or a composite child) has no published version
// to select. A pinned version that does not exist surfaces as the
// repository's cerr.KindNotFound.
func (uc *UseCase) Build(ctx context.Context, nodeID string, w io.Writer) (*Result, error) {
	var nc *model.NodeConfiguration
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		v, err := uc.nodes.Conn(c).NodeConfiguration(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("load node configuration: %w", err)
		}
		nc = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if nc == nil {
		return nil, cerr.NotFound(fmt.Errorf("node %s has no configuration assigned", nodeID))
	}

	var entries []entry
	var version string
	if nc.IsComposite() {
		entries, version, err = uc.buildComposite(ctx, nodeID, nc)
	} else {
		entries, version, err = uc.buildPlain(ctx, nodeID, nc)
	}
	if err != nil {
		if errors.Is(err, semver.ErrNoPublishedVersion) {
			return nil, cerr.Conflict(err)
		}
		return nil, err
	}
	return writeArchive(w, version, entries)
}

func (uc *UseCase) buildPlain(ctx context.Context, nodeID string, nc *model.NodeConfiguration) ([]entry, string, error) {
	cfg, cv, files, err := uc.resolveConfigurationVersion(ctx, *nc.ConfigurationID, nc.PinnedVersion)
	if err != nil {
		return nil, "", err
	}
	entries := make([]entry, 0, len(files)+1)
	for _, f := range files {
		p, err := validatePath(f.Path)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, entry{path: p, content: f.Content, sha256: f.SHA256})
	}
	if nc.UseServerManagedParams && cfg.IsServerManaged {
		resolved, err := uc.params.Resolve(ctx, nodeID, cfg.ID, true)
		if err != nil {
			return nil, "", fmt.Errorf("resolve parameters for %q: %w", cfg.Name, err)
		}
		if resolved != nil && resolved.YAML != nil {
			entries = append(entries, entryFor("parameters.yaml", resolved.YAML))
		}
	}
	return entries, cv.Version.String(), nil
}

func (uc *UseCase) buildComposite(ctx context.Context, nodeID string, nc *model.NodeConfiguration) ([]entry, string, error) {
	var comp *model.CompositeConfiguration
	var ccv *model.CompositeConfigurationVersion
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		cq := uc.composites.Conn(c)
		cc, err := cq.ByID(ctx, *nc.CompositeConfigurationID)
		if err != nil {
			return fmt.Errorf("load composite configuration: %w", err)
		}
		comp = cc
		versions, err := cq.Versions(ctx, comp.ID)
		if err != nil {
			return fmt.Errorf("list composite versions: %w", err)
		}
		if nc.PinnedVersion != nil {
			v, err := cq.Version(ctx, comp.ID, *nc.PinnedVersion)
			if err != nil {
				return fmt.Errorf("load pinned composite version: %w", err)
			}
			ccv = v
			return nil
		}
		v, err := semver.Latest(versions, false)
		if err != nil {
			return fmt.Errorf("select latest composite version: %w", err)
		}
		full, err := cq.Version(ctx, comp.ID, v.Version)
		if err != nil {
			return fmt.Errorf("load latest composite version: %w", err)
		}
		ccv = full
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	entries := make([]entry, 0, len(ccv.Items)*4+1)
	children := make([]orchestratorChild, 0, len(ccv.Items))
	items := append([]model.CompositeConfigurationItem(nil), ccv.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	for _, item := range items {
		childCfg, _, files, err := uc.resolveConfigurationVersion(ctx, item.ConfigurationID, item.PinnedVersion)
		if err != nil {
			return nil, "", fmt.Errorf("resolve composite item %s: %w", item.ConfigurationID, err)
		}
		subdir, err := validatePath(childCfg.Name)
		if err != nil {
			return nil, "", err
		}
		for _, f := range files {
			p, err := validatePath(f.Path)
			if err != nil {
				return nil, "", err
			}
			entries = append(entries, entry{path: path.Join(subdir, p), content: f.Content, sha256: f.SHA256})
		}
		childParamsPath := ""
		if nc.UseServerManagedParams && childCfg.IsServerManaged {
			resolved, err := uc.params.Resolve(ctx, nodeID, childCfg.ID, true)
			if err != nil {
				return nil, "", fmt.Errorf("resolve parameters for %q: %w", childCfg.Name, err)
			}
			if resolved != nil && resolved.YAML != nil {
				childParamsPath = path.Join(subdir, "parameters.yaml")
				entries = append(entries, entryFor(childParamsPath, resolved.YAML))
			}
		}
		children = append(children, orchestratorChild{
			Name:       childCfg.Name,
			EntryPoint: path.Join(subdir, childCfg.EntryPoint),
			Parameters: childParamsPath,
		})
	}

	orchestratorPath, err := validatePath(comp.EntryPoint)
	if err != nil {
		return nil, "", err
	}
	doc, err := marshalOrchestrator(children)
	if err != nil {
		return nil, "", fmt.Errorf("marshal orchestrator: %w", err)
	}
	entries = append(entries, entryFor(orchestratorPath, doc))

	return entries, ccv.Version.String(), nil
}

// resolveConfigurationVersion loads cfg, its version (pinned if non-nil
// else latest published), and that version's files.
func (uc *UseCase) resolveConfigurationVersion(ctx context.Context, configurationID string, pinned *model.SemVer) (*model.Configuration, *model.ConfigurationVersion, []*model.ConfigurationFile, error) {
	var cfg *model.Configuration
	var cv *model.ConfigurationVersion
	var files []*model.ConfigurationFile
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		cq := uc.configs.Conn(c)
		loaded, err := cq.ByID(ctx, configurationID)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		if pinned != nil {
			v, err := cq.Version(ctx, cfg.ID, *pinned)
			if err != nil {
				return fmt.Errorf("load pinned version: %w", err)
			}
			cv = v
		} else {
			versions, err := cq.Versions(ctx, cfg.ID)
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			latest, err := semver.Latest(versions, false)
			if err != nil {
				return fmt.Errorf("select latest version: %w", err)
			}
			cv = latest
		}
		fs, err := cq.Files(ctx, cv.ID)
		if err != nil {
			return fmt.Errorf("load files: %w", err)
		}
		files = fs
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, cv, files, nil
}

func entryFor(p string, content []byte) entry {
	sum := sha256.Sum256(content)
	return entry{path: p, content: content, sha256: hex.EncodeToString(sum[:])}
}

// validatePath enforces the relative, forward-slash, no-".."  path
// policy, re-checked here even though it was already enforced at
// upload time.
func validatePath(p string) (string, error) {
	if p == "" {
		return "", cerr.BadRequest(fmt.Errorf("bundle entry path is empty"))
	}
	clean := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(clean, "/") {
		return "", cerr.BadRequest(fmt.Errorf("bundle entry path %q is absolute", p))
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", cerr.BadRequest(fmt.Errorf("bundle entry path %q escapes its root", p))
		}
	}
	return clean, nil
}

// hashingWriter wraps an io.Writer, accumulating a running SHA-256 of
// every byte written, so the bundle checksum is computed as the
// archive streams out rather than after buffering it in full.
type hashingWriter struct {
	w io.Writer
	h hash.Hash
}

func newHashingWriter(w io.Writer) *hashingWriter {
	return &hashingWriter{w: w, h: sha256.New()}
}

func (hw *hashingWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	if n > 0 {
		hw.h.Write(p[:n])
	}
	return n, err
}

func (hw *hashingWriter) Sum() string {
	return hex.EncodeToString(hw.h.Sum(nil))
}

// writeArchive sorts entries by path ascending, streams them into a
// zip archive with every timestamp pinned to zipEpoch and Store
// compression (Deflate's output can shift subtly across Go releases;
// Store never does), and returns the two checksums.
func writeArchive(w io.Writer, version string, entries []entry) (*Result, error) {
	sorted := append([]entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	hw := newHashingWriter(w)
	zw := zip.NewWriter(hw)
	for _, e := range sorted {
		hdr := &zip.FileHeader{
			Name:     e.path,
			Method:   zip.Store,
			Modified: zipEpoch,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %q: %w", e.path, err)
		}
		if _, err := fw.Write(e.content); err != nil {
			return nil, fmt.Errorf("write zip entry %q: %w", e.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip archive: %w", err)
	}

	return &Result{
		BundleChecksum:   hw.Sum(),
		ManifestChecksum: manifestChecksum(version, sorted),
	}, nil
}

// manifestChecksum is SHA-256 of version + "\n" followed by
// "path:sha256\n" lines sorted ASCII-ascending by path.
func manifestChecksum(version string, sorted []entry) string {
	var b strings.Builder
	b.WriteString(version)
	b.WriteByte('\n')
	for _, e := range sorted {
		b.WriteString(e.path)
		b.WriteByte(':')
		b.WriteString(e.sha256)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
