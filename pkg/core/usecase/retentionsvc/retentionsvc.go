// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package retentionsvc scans Configuration, CompositeConfiguration and
// ParameterFile versions and plans deletions honoring a set of
// protection rules, then optionally carries the plan out.
package retentionsvc

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// UseCase is the Retention Planner.
type UseCase struct {
	pool       repo.Pool
	configs    repo.Configurations
	composites repo.Composites
	params     repo.Parameters
}

// New instantiates the Retention Planner.
func New(p repo.Pool, configs repo.Configurations, composites repo.Composites, params repo.Parameters) *UseCase {
	return &UseCase{pool: p, configs: configs, composites: composites, params: params}
}

// Kind distinguishes a VersionCandidate's owning entity.
type Kind string

// Valid Kind values.
const (
	KindConfiguration Kind = "configuration"
	KindComposite     Kind = "composite"
)

// VersionCandidate is one ConfigurationVersion or
// CompositeConfigurationVersion eligible for deletion.
type VersionCandidate struct {
	Kind       Kind
	ParentID   string
	ParentName string
	VersionID  string
	Version    string
	CreatedAt  time.Time
	FreedBytes int64
}

// ConfigurationsPlan lists every version eligible for deletion across
// every Configuration and CompositeConfiguration.
type ConfigurationsPlan struct {
	Candidates []VersionCandidate
}

// ConfigurationsResult reports the outcome of executing a
// ConfigurationsPlan.
type ConfigurationsResult struct {
	Deleted    []VersionCandidate
	FreedBytes int64
	DryRun     bool
}

// PlanConfigurations scans every Configuration and
// CompositeConfiguration, applying the protection rules in order: (1)
// directly pinned by a NodeConfiguration or CompositeConfigurationItem,
// (2) among the keepVersions most-recently-created versions of its
// parent, (3) created within the last keepDays days. Anything matching
// none of these is a deletion candidate.
func (uc *UseCase) PlanConfigurations(ctx context.Context, keepVersions, keepDays int, now time.Time) (*ConfigurationsPlan, error) {
	plan := &ConfigurationsPlan{}
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		cfgs, err := uc.configs.Conn(c).List(ctx)
		if err != nil {
			return fmt.Errorf("list configurations: %w", err)
		}
		for _, cfg := range cfgs {
			cands, err := uc.planConfigurationVersions(ctx, c, cfg, keepVersions, keepDays, now)
			if err != nil {
				return fmt.Errorf("plan configuration %q: %w", cfg.Name, err)
			}
			plan.Candidates = append(plan.Candidates, cands...)
		}
		comps, err := uc.composites.Conn(c).List(ctx)
		if err != nil {
			return fmt.Errorf("list composite configurations: %w", err)
		}
		for _, comp := range comps {
			cands, err := uc.planCompositeVersions(ctx, c, comp, keepVersions, keepDays, now)
			if err != nil {
				return fmt.Errorf("plan composite configuration %q: %w", comp.Name, err)
			}
			plan.Candidates = append(plan.Candidates, cands...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (uc *UseCase) planConfigurationVersions(ctx context.Context, c repo.Conn, cfg *model.Configuration, keepVersions, keepDays int, now time.Time) ([]VersionCandidate, error) {
	cq := uc.configs.Conn(c)
	versions, err := cq.Versions(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	protect := protectedByRecency(versionTimes(versions), keepVersions)

	var candidates []VersionCandidate
	for _, v := range versions {
		if protect[v.ID] || within(now, v.CreatedAt, keepDays) {
			continue
		}
		inUse, err := cq.VersionInUse(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("version in use: %w", err)
		}
		if inUse {
			continue
		}
		files, err := cq.Files(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("load files: %w", err)
		}
		var freed int64
		for _, f := range files {
			freed += int64(len(f.Content))
		}
		candidates = append(candidates, VersionCandidate{
			Kind:       KindConfiguration,
			ParentID:   cfg.ID,
			ParentName: cfg.Name,
			VersionID:  v.ID,
			Version:    v.Version.String(),
			CreatedAt:  v.CreatedAt,
			FreedBytes: freed,
		})
	}
	return candidates, nil
}

func (uc *UseCase) planCompositeVersions(ctx context.Context, c repo.Conn, comp *model.CompositeConfiguration, keepVersions, keepDays int, now time.Time) ([]VersionCandidate, error) {
	cq := uc.composites.Conn(c)
	versions, err := cq.Versions(ctx, comp.ID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	protect := protectedByRecency(compositeVersionTimes(versions), keepVersions)

	var candidates []VersionCandidate
	for _, v := range versions {
		if protect[v.ID] || within(now, v.CreatedAt, keepDays) {
			continue
		}
		inUse, err := cq.VersionInUse(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("version in use: %w", err)
		}
		if inUse {
			continue
		}
		candidates = append(candidates, VersionCandidate{
			Kind:       KindComposite,
			ParentID:   comp.ID,
			ParentName: comp.Name,
			VersionID:  v.ID,
			Version:    v.Version.String(),
			CreatedAt:  v.CreatedAt,
			// A composite version owns no file content of its own; the
			// bytes it references belong to its children's own
			// Configuration versions and are freed independently.
			FreedBytes: 0,
		})
	}
	return candidates, nil
}

// ExecuteConfigurations carries out plan. In dry-run mode nothing is
// deleted; the plan's candidates are reported as what would be freed.
// Otherwise each version is deleted in its own transaction so that a
// later failure leaves earlier deletions durable.
func (uc *UseCase) ExecuteConfigurations(ctx context.Context, plan *ConfigurationsPlan, dryRun bool) (*ConfigurationsResult, error) {
	res := &ConfigurationsResult{DryRun: dryRun}
	for _, cand := range plan.Candidates {
		if !dryRun {
			err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
				switch cand.Kind {
				case KindConfiguration:
					return uc.configs.Conn(c).DeleteVersion(ctx, cand.VersionID)
				case KindComposite:
					return uc.composites.Conn(c).DeleteVersion(ctx, cand.VersionID)
				default:
					return fmt.Errorf("unknown candidate kind %q", cand.Kind)
				}
			})
			if err != nil {
				return nil, fmt.Errorf("delete %s version %s: %w", cand.Kind, cand.VersionID, err)
			}
		}
		res.Deleted = append(res.Deleted, cand)
		res.FreedBytes += cand.FreedBytes
	}
	return res, nil
}

// ParameterCandidate is one ParameterFile eligible for deletion.
type ParameterCandidate struct {
	ConfigurationID string
	ScopeTypeID     string
	ScopeValueID    string
	FileID          string
	CreatedAt       time.Time
	FreedBytes      int64
}

// ParametersPlan lists every ParameterFile eligible for deletion.
type ParametersPlan struct {
	Candidates []ParameterCandidate
}

// ParametersResult reports the outcome of executing a ParametersPlan.
type ParametersResult struct {
	Deleted    []ParameterCandidate
	FreedBytes int64
	DryRun     bool
}

// PlanParameters scans every Configuration's ParameterFiles, grouped
// by (scope-type, scope-value) triple. The currently active file of
// each triple is always protected, alongside the same keep-versions/
// keep-days rules used for configuration versions.
func (uc *UseCase) PlanParameters(ctx context.Context, keepVersions, keepDays int, now time.Time) (*ParametersPlan, error) {
	plan := &ParametersPlan{}
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		cfgs, err := uc.configs.Conn(c).List(ctx)
		if err != nil {
			return fmt.Errorf("list configurations: %w", err)
		}
		pq := uc.params.Conn(c)
		for _, cfg := range cfgs {
			files, err := pq.FilesByConfiguration(ctx, cfg.ID)
			if err != nil {
				return fmt.Errorf("list parameter files for %q: %w", cfg.Name, err)
			}
			plan.Candidates = append(plan.Candidates, planParameterFiles(cfg.ID, files, keepVersions, keepDays, now)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func planParameterFiles(configurationID string, files []*model.ParameterFile, keepVersions, keepDays int, now time.Time) []ParameterCandidate {
	byTriple := map[string][]*model.ParameterFile{}
	for _, f := range files {
		key := f.ScopeTypeID + "\x00" + f.ScopeValueID
		byTriple[key] = append(byTriple[key], f)
	}

	var candidates []ParameterCandidate
	for _, group := range byTriple {
		sort.Slice(group, func(i, j int) bool { return group[i].CreatedAt.After(group[j].CreatedAt) })
		protect := make(map[string]bool, len(group))
		kept := 0
		for _, f := range group {
			if f.IsActive {
				protect[f.ID] = true
				continue
			}
			if kept < keepVersions {
				protect[f.ID] = true
				kept++
			}
		}
		for _, f := range group {
			if protect[f.ID] || within(now, f.CreatedAt, keepDays) {
				continue
			}
			candidates = append(candidates, ParameterCandidate{
				ConfigurationID: configurationID,
				ScopeTypeID:     f.ScopeTypeID,
				ScopeValueID:    f.ScopeValueID,
				FileID:          f.ID,
				CreatedAt:       f.CreatedAt,
				FreedBytes:      int64(len(f.Content)),
			})
		}
	}
	return candidates
}

// ExecuteParameters carries out plan, one file deletion per
// transaction, for the same durability reason as
// ExecuteConfigurations.
func (uc *UseCase) ExecuteParameters(ctx context.Context, plan *ParametersPlan, dryRun bool) (*ParametersResult, error) {
	res := &ParametersResult{DryRun: dryRun}
	for _, cand := range plan.Candidates {
		if !dryRun {
			err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
				return uc.params.Conn(c).DeleteFile(ctx, cand.FileID)
			})
			if err != nil {
				return nil, fmt.Errorf("delete parameter file %s: %w", cand.FileID, err)
			}
		}
		res.Deleted = append(res.Deleted, cand)
		res.FreedBytes += cand.FreedBytes
	}
	return res, nil
}

func within(now, createdAt time.Time, keepDays int) bool {
	if keepDays <= 0 {
		return false
	}
	return now.Sub(createdAt) <= time.Duration(keepDays)*24*time.Hour
}

func protectedByRecency(idsByCreatedAtDesc []string, keepVersions int) map[string]bool {
	protect := make(map[string]bool, len(idsByCreatedAtDesc))
	for i, id := range idsByCreatedAtDesc {
		if i >= keepVersions {
			break
		}
		protect[id] = true
	}
	return protect
}

func versionTimes(versions []*model.ConfigurationVersion) []string {
	sorted := append([]*model.ConfigurationVersion(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	ids := make([]string, len(sorted))
	for i, v := range sorted {
		ids[i] = v.ID
	}
	return ids
}

func compositeVersionTimes(versions []*model.CompositeConfigurationVersion) []string {
	sorted := append([]*model.CompositeConfigurationVersion(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	ids := make([]string, len(sorted))
	for i, v := range sorted {
		ids[i] = v.ID
	}
	return ids
}
