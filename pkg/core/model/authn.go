// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "time"

// SessionIdleTimeout is how long a Session may go without an
// authenticated request before it is considered expired.
const SessionIdleTimeout = 30 * time.Minute

// SessionAbsoluteLifetime bounds a Session regardless of activity.
const SessionAbsoluteLifetime = 8 * time.Hour

// Session is an operator's cookie-backed login, sliding its idle
// timeout forward on every authenticated request up to its absolute
// lifetime.
type Session struct {
	ID         string
	Token      string
	UserID     string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Expired reports whether s can no longer be used to authenticate at
// instant now, either because its absolute lifetime has elapsed or
// because it has sat idle past SessionIdleTimeout.
func (s Session) Expired(now time.Time) bool {
	if now.After(s.CreatedAt.Add(SessionAbsoluteLifetime)) {
		return true
	}
	return now.After(s.LastSeenAt.Add(SessionIdleTimeout))
}

// PersonalAccessTokenPrefix marks every PersonalAccessToken's bearer
// value, distinguishing it from a session token at a glance.
const PersonalAccessTokenPrefix = "pat_"

// PersonalAccessToken is a long-lived bearer credential an operator may
// present instead of a session cookie, typically for scripts and CI.
type PersonalAccessToken struct {
	ID        string
	Token     string
	UserID    string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means no expiration
	Revoked   bool
}

// Usable reports whether p may still authenticate a request at instant
// now.
func (p PersonalAccessToken) Usable(now time.Time) bool {
	if p.Revoked {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}
