package main

import (
	"context"
	"flag"
	"log"

	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/migrations/walletdb"
	"github.com/chainsafe/confidential-wallet/pkg/pgutil"
	mghelper "github.com/chainsafe/confidential-wallet/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}
	if !cfg.Database.Enabled() {
		log.Fatalf("no database configured in %s", *cfgPath)
	}

	ctx := context.Background()
	db, err := pgutil.ConnectDB(ctx, &cfg.Database, nil)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for wallet database (%s)...\n", cfg.Database.Database)

	migrator := migrate.NewMigrator(db, walletdb.Migrations)
	if err := mghelper.RunMigrations(ctx, migrator, flag.Args()...); err != nil {
		mghelper.Exitf(err.Error())
	}
}
