// Package walletdb holds all the migrations for the wallet database
package walletdb

import "github.com/uptrace/bun/migrate"

// Migrations is the registry of wallet database migrations
var Migrations = migrate.NewMigrations()
