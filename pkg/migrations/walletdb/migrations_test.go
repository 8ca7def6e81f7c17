package walletdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/confidential-wallet/pkg/pgutil"
	mghelper "github.com/chainsafe/confidential-wallet/pkg/pgutil/migrations"
)

func TestWalletDBMigrations(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, Migrations)

	require.Error(t, mghelper.RunMigrations(ctx, migrator))
	require.Error(t, mghelper.RunMigrations(ctx, migrator, "sideways"))

	require.NoError(t, mghelper.RunMigrations(ctx, migrator, "init"))
	require.NoError(t, mghelper.RunMigrations(ctx, migrator, "up"))
	pgutil.RequireTable(t, db, "custom_tokens", true)
	pgutil.RequireIndex(t, db, "idx_custom_tokens_token_type")

	// second run applies nothing
	group, err := migrator.Migrate(ctx)
	require.NoError(t, err)
	require.True(t, group.IsZero())

	require.NoError(t, mghelper.RunMigrations(ctx, migrator, "status"))

	require.NoError(t, mghelper.RunMigrations(ctx, migrator, "down"))
	pgutil.RequireTable(t, db, "custom_tokens", false)
}
