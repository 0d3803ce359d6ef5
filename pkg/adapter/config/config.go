// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config loads the Pull Server's configuration file. The file
// format is a single YAML document, following the teacher's approach of
// primitive, locally defined fields rather than model or repo types, so
// this package can evolve independently from the layers it configures.
//
// Unlike the teacher's cfg1/cfg2 pair, this package carries no versioned
// migration machinery: OpenDSC has no multi-tenant role/password
// rotation story and its relational schema is a thin, auto-migrated
// glue layer (see pkg/adapter/db/postgres), so a single config shape is
// tracked and old files are expected to be hand edited across upgrades.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"gopkg.in/yaml.v3"
)

// Config contains every setting needed to run the Pull Server.
type Config struct {
	Database  Database  `yaml:"database"`
	Gin       Gin       `yaml:"gin"`
	Node      Node      `yaml:"node"`
	Retention Retention `yaml:"retention"`
}

// Database contains the PostgreSQL connection settings.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl-mode"`
}

// ConnectionPool creates a PostgreSQL connection pool based on the `d`
// settings.
func (d Database) ConnectionPool(ctx context.Context) (repo.Pool, error) {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	url := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, sslMode,
	)
	p, err := postgres.NewPool(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres.NewPool: %w", err)
	}
	return p, nil
}

// Gin contains the gin-gonic engine instantiation settings for the
// operator-facing REST API.
type Gin struct {
	Addr     string `yaml:"addr"`
	Logger   bool   `yaml:"logger"`
	Recovery bool   `yaml:"recovery"`
}

// NewEngine instantiates a new gin-gonic engine based on the `g`
// settings.
func (g Gin) NewEngine() *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 2)
	if g.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if g.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	return gin.New(middlewares...)
}

// Node contains the settings of the node-facing mTLS mux, which is kept
// on a separate listener and separate trust domain from the operator
// REST API.
type Node struct {
	Addr    string `yaml:"addr"`
	CAFile  string `yaml:"ca-file"`
	CrtFile string `yaml:"crt-file"`
	KeyFile string `yaml:"key-file"`
}

// Retention contains the retention policy knobs read from the
// configuration file. Cleanup runs over the REST API take keepVersions
// and keepDays from each request and do not fall back to these values.
type Retention struct {
	KeepVersions int           `yaml:"keep-versions"`
	KeepDays     time.Duration `yaml:"keep-days"`
}

// Load parses data as a YAML document and returns the resulting Config.
func Load(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	c.normalize()
	return c, nil
}

// normalize fills zero-valued fields with their defaults.
func (c *Config) normalize() {
	if c.Gin.Addr == "" {
		c.Gin.Addr = ":8080"
	}
	if c.Node.Addr == "" {
		c.Node.Addr = ":8443"
	}
	if c.Retention.KeepVersions == 0 {
		c.Retention.KeepVersions = 5
	}
}
