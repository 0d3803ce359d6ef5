// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schema derives a structural JSON Schema from a decoded
// parameter document, normalizes it to a canonical byte form, hashes
// it, and classifies the difference between two schemas for the SemVer
// compliance check described by the configuration catalog.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/goccy/go-json"
	"github.com/opendsc/opendsc/pkg/core/model"
)

// Kind names a JSON Schema-ish structural type. Only the shapes a
// parameter document can produce are represented; there is no need for
// the full JSON Schema vocabulary (refs, combinators, formats) since
// this schema exists only to detect additive/breaking shape changes.
type Kind string

// Supported Schema Kind values.
const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
)

// Schema is a structural shape descriptor: object shapes, scalar
// types, and arrays described by a single homogeneous item schema.
type Schema struct {
	Type       Kind               `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

// Derive builds a Schema describing the shape of v, where v is a
// decoded parameter document as produced by package merge (nested
// map[string]any, []any, and scalar leaves).
func Derive(v any) *Schema {
	switch t := v.(type) {
	case map[string]any:
		props := make(map[string]*Schema, len(t))
		for k, vv := range t {
			props[k] = Derive(vv)
		}
		return &Schema{Type: KindObject, Properties: props}
	case []any:
		if len(t) == 0 {
			return &Schema{Type: KindArray, Items: &Schema{Type: KindNull}}
		}
		item := Derive(t[0])
		for _, elem := range t[1:] {
			item = unify(item, Derive(elem))
		}
		return &Schema{Type: KindArray, Items: item}
	case string:
		return &Schema{Type: KindString}
	case bool:
		return &Schema{Type: KindBoolean}
	case int, int64, uint64:
		return &Schema{Type: KindInteger}
	case float64:
		if t == float64(int64(t)) {
			return &Schema{Type: KindInteger}
		}
		return &Schema{Type: KindNumber}
	case nil:
		return &Schema{Type: KindNull}
	default:
		return &Schema{Type: KindString}
	}
}

// unify merges two element schemas of the same array into one
// homogeneous schema: matching object shapes union their properties,
// mismatched shapes fall back to the first schema seen (the array is
// only ever required to be self-consistent for the purposes of the
// compliance check, not exhaustively validated).
func unify(a, b *Schema) *Schema {
	if a.Type != b.Type {
		return a
	}
	if a.Type != KindObject {
		return a
	}
	props := make(map[string]*Schema, len(a.Properties))
	for k, v := range a.Properties {
		props[k] = v
	}
	for k, v := range b.Properties {
		if existing, ok := props[k]; ok {
			props[k] = unify(existing, v)
		} else {
			props[k] = v
		}
	}
	return &Schema{Type: KindObject, Properties: props}
}

// Normalize serializes s canonically: object keys are sorted (goccy/go-json
// preserves encoding/json's map[string]*Schema key-sort guarantee) and
// numeric forms were already canonicalized to KindInteger/KindNumber
// during Derive, so a direct marshal is deterministic across
// equivalent inputs.
func Normalize(s *Schema) ([]byte, error) {
	return json.Marshal(s)
}

// Hash returns the hex-lowercase SHA-256 digest of s's normalized
// serialization. Two documents whose shapes normalize identically
// produce the same hash regardless of key order or scalar values.
func Hash(s *Schema) (string, error) {
	b, err := Normalize(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ChangeKind classifies the shape difference between a previously
// published schema and a newly uploaded one.
type ChangeKind int

// Supported ChangeKind values, ordered from least to most severe so
// that combining classifications can take the maximum.
const (
	ChangeIdentical ChangeKind = iota
	ChangeAdditive
	ChangeBreaking
)

// String renders k for diagnostics.
func (k ChangeKind) String() string {
	switch k {
	case ChangeIdentical:
		return "identical"
	case ChangeAdditive:
		return "additive"
	case ChangeBreaking:
		return "breaking"
	default:
		return "unknown"
	}
}

// Classify compares prev (the previously published schema) against
// next (the newly uploaded schema) and returns the most severe change
// found anywhere in the tree: a removed property or a scalar type
// change is Breaking; a newly added property (with no removal or type
// change elsewhere) is Additive; an unchanged shape is Identical.
func Classify(prev, next *Schema) ChangeKind {
	if prev == nil && next == nil {
		return ChangeIdentical
	}
	if prev == nil {
		return ChangeAdditive
	}
	if next == nil {
		return ChangeBreaking
	}
	if prev.Type != next.Type {
		return ChangeBreaking
	}
	switch prev.Type {
	case KindObject:
		return classifyObject(prev, next)
	case KindArray:
		return Classify(prev.Items, next.Items)
	default:
		return ChangeIdentical
	}
}

func classifyObject(prev, next *Schema) ChangeKind {
	worst := ChangeIdentical
	for k, prevProp := range prev.Properties {
		nextProp, ok := next.Properties[k]
		if !ok {
			return ChangeBreaking // a removed property is always the worst outcome
		}
		if c := Classify(prevProp, nextProp); c > worst {
			worst = c
		}
	}
	for k := range next.Properties {
		if _, ok := prev.Properties[k]; !ok {
			if worst < ChangeAdditive {
				worst = ChangeAdditive
			}
		}
	}
	return worst
}

// RequiredBump names the minimum version-component bump a ChangeKind
// demands: "major", "minor", or "patch".
func (k ChangeKind) RequiredBump() string {
	switch k {
	case ChangeBreaking:
		return "major"
	case ChangeAdditive:
		return "minor"
	default:
		return "patch"
	}
}

// SatisfiesBump reports whether the version step from prev to next
// honors the bump that kind demands: a major bump satisfies any
// requirement, a minor bump satisfies additive or identical changes,
// and a patch-only (or pre-release/build-only) step satisfies only an
// identical shape. prev must precede next (callers only ever invoke
// this on the previous published version and the new upload).
func SatisfiesBump(prev, next model.SemVer, kind ChangeKind) bool {
	majorBumped := next.Major != prev.Major
	minorBumped := majorBumped || next.Minor != prev.Minor
	switch kind {
	case ChangeBreaking:
		return majorBumped
	case ChangeAdditive:
		return minorBumped
	default:
		return true
	}
}

// SortedKeys returns m's keys in ascending order, for callers that want
// a deterministic property iteration order outside of JSON marshaling
// (e.g. rendering a schema diff for humans).
func SortedKeys(m map[string]*Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
