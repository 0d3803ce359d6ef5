// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package postgres is an adapter exposing the interfaces which are
// required by the github.com/opendsc/opendsc/pkg/core/repo package.
// The actual implementation uses github.com/jackc/pgx/v5 for the
// connections and gorm.io/gorm for the models mapping and ORM.
//
// The relational schema itself is treated as thin glue (any relational
// store satisfying the repo.Pool/Conn/Tx contract suffices), so this
// package does not carry a versioned schema-migration engine: operators
// apply the GORM auto-migration performed by Pool.AutoMigrate once, and
// upgrades are expected to be handled by an external migration tool.
package postgres
