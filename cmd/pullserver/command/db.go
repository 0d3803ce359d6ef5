// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/opendsc/opendsc/pkg/adapter/config"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/authnrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/authzrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/compositerp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/configrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/noderp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/paramrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/scoperp"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management actions",
	Long: `Database management actions can be chosen by sub-commands.
The relational schema is treated as thin glue rather than a versioned
artifact, so the only supported action is "migrate", which runs a GORM
auto-migration over every repository's tables.`,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables for every repository",
	RunE:  migrate,
}

func migrate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("reading %q: %w", cfgPath, err)
	}
	c, err := config.Load(data)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	p, err := c.Database.ConnectionPool(ctx)
	if err != nil {
		return fmt.Errorf("creating DB pool: %w", err)
	}
	defer p.Close()
	pp, ok := p.(*postgres.Pool)
	if !ok {
		return fmt.Errorf("db migrate requires the postgres adapter pool")
	}
	models := make([]any, 0, 32)
	models = append(models, scoperp.Models()...)
	models = append(models, configrp.Models()...)
	models = append(models, compositerp.Models()...)
	models = append(models, paramrp.Models()...)
	models = append(models, noderp.Models()...)
	models = append(models, authzrp.Models()...)
	models = append(models, authnrp.Models()...)
	if err := pp.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating: %w", err)
	}
	fmt.Println("database schema is up to date")
	return nil
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(migrateCmd)
}
