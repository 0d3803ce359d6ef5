// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package merge implements the parameter merger: a pure, deterministic
// deep-merge over an ordered sequence of tagged YAML/JSON documents,
// producing both the merged mapping and a per-leaf provenance index.
//
// The merge is modeled as a left fold over the document sequence: each
// document is merged into an accumulator tree built from the
// lower-precedence documents so far. At every key, a mapping on both
// sides recurses; any other combination is a full replacement of the
// lower-precedence value by the higher-precedence one (arrays are
// never concatenated, and an explicit null replaces like any other
// scalar).
package merge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opendsc/opendsc/pkg/core/model"
	"gopkg.in/yaml.v3"
)

// Format names the serialization of a Document's bytes.
type Format int

// Supported Document formats.
const (
	FormatYAML Format = iota
	FormatJSON
)

// Document is one input to Merge: a byte sequence tagged with the
// scope-type/scope-value/precedence triple that produced it.
type Document struct {
	Tag    model.SourceTag
	Data   []byte
	Format Format
}

// Override is one entry of a LeafProvenance's OverriddenBy list: a
// value that used to occupy the leaf's path before a higher-precedence
// document replaced it.
type Override struct {
	Source string
	Value  any
}

// LeafProvenance records, for one dotted leaf path of a merge Result,
// the winning source and the ordered history of values it overrode,
// from the immediate loser back to the oldest contributor.
type LeafProvenance struct {
	Source       string
	Value        any
	OverriddenBy []Override
}

// Result is the output of Merge: the merged mapping plus its
// provenance index, keyed by dotted leaf path ("" for a leaf at the
// document root, which cannot occur since the root is always a
// mapping per the Merger's contract).
type Result struct {
	Merged     map[string]any
	Provenance map[string]LeafProvenance
}

// ParseError is returned by Merge when a Document fails to deserialize.
// Offset is the byte offset reported by the JSON decoder, or -1 when
// the document is YAML (whose decoder does not expose offsets) or the
// offset is otherwise unavailable.
type ParseError struct {
	Source string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("merge: %s: byte %d: %v", e.Source, e.Offset, e.Err)
	}
	return fmt.Sprintf("merge: %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Merge deep-merges docs in the order given; callers must supply them
// with strictly increasing Tag.Precedence (Merge does not itself sort
// or validate that ordering, matching the Merger's pure, order-is-input
// contract). An empty docs returns an empty mapping with empty
// provenance. Any document that fails to deserialize to a mapping
// aborts the merge with a *ParseError; no partial result is returned.
func Merge(docs []Document) (Result, error) {
	if len(docs) == 0 {
		return Result{Merged: map[string]any{}, Provenance: map[string]LeafProvenance{}}, nil
	}
	root := &node{}
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			return Result{}, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return Result{}, &ParseError{
				Source: d.Tag.String(),
				Offset: -1,
				Err:    fmt.Errorf("document does not deserialize to a mapping"),
			}
		}
		mergeMapInto(root, d.Tag.String(), m)
	}
	prov := map[string]LeafProvenance{}
	merged := resolveAndCollect(root, "", prov)
	asMap, _ := merged.(map[string]any)
	if asMap == nil {
		asMap = map[string]any{}
	}
	return Result{Merged: asMap, Provenance: prov}, nil
}

func decode(d Document) (any, error) {
	var v any
	var err error
	switch d.Format {
	case FormatJSON:
		err = json.Unmarshal(d.Data, &v)
		if err != nil {
			offset := int64(-1)
			var se *json.SyntaxError
			if errors.As(err, &se) {
				offset = se.Offset
			}
			return nil, &ParseError{Source: d.Tag.String(), Offset: offset, Err: err}
		}
	default:
		err = yaml.Unmarshal(d.Data, &v)
		if err != nil {
			return nil, &ParseError{Source: d.Tag.String(), Offset: -1, Err: err}
		}
	}
	return normalizeKeys(v), nil
}

// normalizeKeys walks a decoded value and ensures nested mappings are
// map[string]any (yaml.v3 already does this, but defends against any
// decoder producing map[any]any-like shapes for malformed input).
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeKeys(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeKeys(vv)
		}
		return out
	default:
		return v
	}
}

// historyEntry is one raw contribution at a given path, in the order
// documents were merged (ascending precedence).
type historyEntry struct {
	source string
	value  any
}

// node is the internal merge accumulator for one path. A node is
// either a mapping (children populated) or a leaf (history populated);
// a later document can flip a node between the two, per the Merger's
// full-replacement rule for any non-mapping/mapping combination.
type node struct {
	isMap    bool
	children map[string]*node

	history []historyEntry // every raw contribution ever made at this exact path, while in leaf form

	lastTouchedSource string // source of the most recent document to touch this node directly

	// collapsed records a subtree that existed here before a later
	// document replaced it wholesale (in either direction, map-to-leaf
	// or leaf-to-map); it is surfaced as a synthetic provenance entry at
	// this node's own path, alongside the entries of its now-current
	// children (or its now-current leaf value), since the replaced
	// subtree's leaves have no other path to be recorded under.
	collapsed *Override
}

func mergeMapInto(n *node, source string, m map[string]any) {
	if !n.isMap && len(n.history) > 0 {
		// A scalar/array/null leaf is being wholesale replaced by a
		// mapping: the prior value has no child path of its own to be
		// recorded under, so it is collapsed onto this node.
		last := n.history[len(n.history)-1]
		n.collapsed = &Override{Source: last.source, Value: last.value}
		n.history = nil
	}
	n.lastTouchedSource = source
	n.isMap = true
	if n.children == nil {
		n.children = map[string]*node{}
	}
	for k, v := range m {
		child, ok := n.children[k]
		if !ok {
			child = &node{}
			n.children[k] = child
		}
		mergeValueInto(child, source, v)
	}
}

func mergeValueInto(n *node, source string, v any) {
	if m, ok := v.(map[string]any); ok {
		mergeMapInto(n, source, m)
		return
	}
	if n.isMap && len(n.children) > 0 {
		// A mapping is being wholesale replaced by a scalar/array/null.
		// Snapshot its current resolved value as the single collapsed
		// entry so every shadowed leaf beneath it is still accounted
		// for, if only as one composite value.
		snapshotProv := map[string]LeafProvenance{}
		snap := resolveAndCollect(n, "", snapshotProv)
		n.collapsed = &Override{Source: n.lastTouchedSource, Value: snap}
	}
	n.lastTouchedSource = source
	n.isMap = false
	n.children = nil
	n.history = append(n.history, historyEntry{source: source, value: v})
}

// resolveAndCollect resolves n to its final plain value (map[string]any
// for a mapping node, or the winning raw value for a leaf) and, along
// the way, writes every leaf's LeafProvenance into prov keyed by its
// dotted path (path segments joined with "."; the root is the empty
// path and is never itself a provenance entry since the Merger's
// contract guarantees a mapping at the top level).
func resolveAndCollect(n *node, path string, prov map[string]LeafProvenance) any {
	if n.isMap {
		out := make(map[string]any, len(n.children))
		for k, child := range n.children {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			out[k] = resolveAndCollect(child, childPath, prov)
		}
		if n.collapsed != nil && path != "" {
			prov[path] = LeafProvenance{
				OverriddenBy: []Override{*n.collapsed},
			}
		}
		return out
	}
	last := n.history[len(n.history)-1]
	overridden := make([]Override, 0, len(n.history)-1)
	for i := len(n.history) - 2; i >= 0; i-- {
		overridden = append(overridden, Override{
			Source: n.history[i].source,
			Value:  n.history[i].value,
		})
	}
	if n.collapsed != nil {
		overridden = append(overridden, *n.collapsed)
	}
	prov[path] = LeafProvenance{
		Source:       last.source,
		Value:        last.value,
		OverriddenBy: overridden,
	}
	return last.value
}
