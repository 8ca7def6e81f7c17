package walletdb

import (
	"context"
	"log"

	mghelper "github.com/chainsafe/confidential-wallet/pkg/pgutil/migrations"
	"github.com/chainsafe/confidential-wallet/pkg/tokenstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating custom_tokens table...")
		if err := mghelper.CreateSchema(ctx, db, &tokenstore.TokenDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &tokenstore.TokenDao{}, "token_type")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping custom_tokens table...")
		return mghelper.DropTables(ctx, db, &tokenstore.TokenDao{})
	})
}
