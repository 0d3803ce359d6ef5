// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authnrp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
)

type gSession struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Token      string    `gorm:"uniqueIndex"`
	UserID     uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt  time.Time
	LastSeenAt time.Time
}

func (gSession) TableName() string { return "sessions" }

func (g *gSession) Model() *model.Session {
	return &model.Session{
		ID:         g.ID.String(),
		Token:      g.Token,
		UserID:     g.UserID.String(),
		CreatedAt:  g.CreatedAt,
		LastSeenAt: g.LastSeenAt,
	}
}

type gPersonalAccessToken struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Token     string    `gorm:"uniqueIndex"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Revoked   bool
}

func (gPersonalAccessToken) TableName() string { return "personal_access_tokens" }

func (g *gPersonalAccessToken) Model() *model.PersonalAccessToken {
	return &model.PersonalAccessToken{
		ID:        g.ID.String(),
		Token:     g.Token,
		UserID:    g.UserID.String(),
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		ExpiresAt: g.ExpiresAt,
		Revoked:   g.Revoked,
	}
}

// CreateSession persists a new Session, assigning it an ID.
func CreateSession[Q postgres.Queryer](ctx context.Context, q Q, s *model.Session) error {
	id := uuid.New()
	userID, err := uuid.Parse(s.UserID)
	if err != nil {
		return cerr.BadRequest(fmt.Errorf("userID is not a uuid: %w", err))
	}
	g := &gSession{
		ID:         id,
		Token:      s.Token,
		UserID:     userID,
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.ID = id.String()
	return nil
}

// SessionByToken loads a Session by its bearer token.
func SessionByToken[Q postgres.Queryer](ctx context.Context, q Q, token string) (*model.Session, error) {
	var g gSession
	err := q.GORM(ctx).Where("token = ?", token).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("session not found"))
		}
		return nil, fmt.Errorf("session by token: %w", err)
	}
	return g.Model(), nil
}

// TouchSession advances a Session's LastSeenAt.
func TouchSession[Q postgres.Queryer](ctx context.Context, q Q, id string, lastSeenAt time.Time) error {
	tt := q.GORM(ctx).Model(&gSession{}).Where("id = ?", id).Update("last_seen_at", lastSeenAt)
	if tt.Error != nil {
		return fmt.Errorf("touch session: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("session %s not found", id))
	}
	return nil
}

// DeleteSession removes a Session by ID.
func DeleteSession[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	tt := q.GORM(ctx).Delete(&gSession{}, "id = ?", id)
	if tt.Error != nil {
		return fmt.Errorf("delete session: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("session %s not found", id))
	}
	return nil
}

// PersonalAccessTokenByToken loads a PersonalAccessToken by its bearer
// token.
func PersonalAccessTokenByToken[Q postgres.Queryer](ctx context.Context, q Q, token string) (*model.PersonalAccessToken, error) {
	var g gPersonalAccessToken
	err := q.GORM(ctx).Where("token = ?", token).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("personal access token not found"))
		}
		return nil, fmt.Errorf("personal access token by token: %w", err)
	}
	return g.Model(), nil
}
