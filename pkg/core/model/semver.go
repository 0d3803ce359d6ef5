// Copyright (c) 2024 Behnam Momeni
// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SemVer represents a semantic version as defined by SemVer 2.0.0:
// MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]. Unlike a bare three-number
// release tag, configuration and composite-configuration versions may
// carry pre-release and build metadata, since drafts and pinned
// pre-release channels are first-class in the configuration catalog.
type SemVer struct {
	Major, Minor, Patch uint64
	Pre                 []string // dot-separated pre-release identifiers
	Build               []string // dot-separated build identifiers, ignored by Compare
}

// ParseSemVer parses s as a SemVer 2.0.0 version string.
func ParseSemVer(s string) (SemVer, error) {
	var sv SemVer
	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		sv.Build = strings.Split(rest[i+1:], ".")
		rest = rest[:i]
		if err := validateIdentifiers(sv.Build, true); err != nil {
			return SemVer{}, fmt.Errorf("build metadata %q: %w", s, err)
		}
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		sv.Pre = strings.Split(rest[i+1:], ".")
		rest = rest[:i]
		if err := validateIdentifiers(sv.Pre, false); err != nil {
			return SemVer{}, fmt.Errorf("pre-release %q: %w", s, err)
		}
	}
	core := strings.Split(rest, ".")
	if len(core) != 3 {
		return SemVer{}, fmt.Errorf(
			"%q does not have exactly 3 core components", s,
		)
	}
	nums := make([]uint64, 3)
	for i, c := range core {
		if c == "" || (len(c) > 1 && c[0] == '0') {
			return SemVer{}, fmt.Errorf(
				"%q core component %q has leading zero or is empty", s, c,
			)
		}
		n, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return SemVer{}, fmt.Errorf(
				"%q core component %q is not numeric: %w", s, c, err,
			)
		}
		nums[i] = n
	}
	sv.Major, sv.Minor, sv.Patch = nums[0], nums[1], nums[2]
	return sv, nil
}

func validateIdentifiers(ids []string, allowLeadingZero bool) error {
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("empty identifier")
		}
		for _, r := range id {
			isAlnum := (r >= '0' && r <= '9') ||
				(r >= 'a' && r <= 'z') ||
				(r >= 'A' && r <= 'Z') || r == '-'
			if !isAlnum {
				return fmt.Errorf("identifier %q has invalid character", id)
			}
		}
		if !allowLeadingZero && isNumeric(id) && len(id) > 1 && id[0] == '0' {
			return fmt.Errorf("numeric identifier %q has leading zero", id)
		}
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders sv as its canonical SemVer 2.0.0 textual form.
func (sv SemVer) String() string {
	s := fmt.Sprintf("%d.%d.%d", sv.Major, sv.Minor, sv.Patch)
	if len(sv.Pre) > 0 {
		s += "-" + strings.Join(sv.Pre, ".")
	}
	if len(sv.Build) > 0 {
		s += "+" + strings.Join(sv.Build, ".")
	}
	return s
}

// UnmarshalText implements encoding.TextUnmarshaler, allowing SemVer to
// be read directly from YAML/JSON scalar values.
func (sv *SemVer) UnmarshalText(text []byte) error {
	v, err := ParseSemVer(string(text))
	if err != nil {
		return err
	}
	*sv = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (sv SemVer) MarshalText() ([]byte, error) {
	return []byte(sv.String()), nil
}

// IsPreRelease reports whether sv carries pre-release identifiers.
func (sv SemVer) IsPreRelease() bool {
	return len(sv.Pre) > 0
}

// Compare returns -1, 0, or 1 as sv is less than, equal to, or greater
// than other, per SemVer 2.0.0 precedence rules. Build metadata is
// ignored, as mandated by the spec.
func (sv SemVer) Compare(other SemVer) int {
	if c := cmpUint(sv.Major, other.Major); c != 0 {
		return c
	}
	if c := cmpUint(sv.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmpUint(sv.Patch, other.Patch); c != 0 {
		return c
	}
	switch {
	case len(sv.Pre) == 0 && len(other.Pre) == 0:
		return 0
	case len(sv.Pre) == 0: // sv is a release, other is a pre-release
		return 1
	case len(other.Pre) == 0:
		return -1
	}
	n := len(sv.Pre)
	if len(other.Pre) < n {
		n = len(other.Pre)
	}
	for i := 0; i < n; i++ {
		if c := comparePreIdentifier(sv.Pre[i], other.Pre[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(sv.Pre), len(other.Pre))
}

func comparePreIdentifier(a, b string) int {
	aNum, bNum := isNumeric(a), isNumeric(b)
	switch {
	case aNum && bNum:
		// numeric identifiers compare numerically; they are bounded by
		// the textual representation of a version string in practice.
		if len(a) != len(b) {
			return cmpInt(len(a), len(b))
		}
		return strings.Compare(a, b)
	case aNum && !bNum:
		return -1 // numeric identifiers have lower precedence
	case !aNum && bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether sv precedes other.
func (sv SemVer) Less(other SemVer) bool {
	return sv.Compare(other) < 0
}

// Equal reports whether sv and other have identical precedence (build
// metadata excluded, as it never participates in precedence).
func (sv SemVer) Equal(other SemVer) bool {
	return sv.Compare(other) == 0
}
