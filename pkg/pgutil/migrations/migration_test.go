package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/pgutil"
)

type noteDao struct {
	bun.BaseModel `bun:"table:notes"`
	ID            int64  `bun:",pk,autoincrement"`
	Body          string `bun:",notnull,type:varchar(100)"`
	Tag           string `bun:",nullzero"`
}

func TestConnectDB_InvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	_, err := pgutil.ConnectDB(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestSchemaHelpers(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, CreateSchema(ctx, db, &noteDao{}))
	require.NoError(t, CreateSchema(ctx, db, &noteDao{}), "second call must be a no-op")
	pgutil.RequireTable(t, db, "notes", true)

	require.NoError(t, CreateModelIndexes(ctx, db, &noteDao{}, "tag"))
	pgutil.RequireIndex(t, db, "idx_notes_tag")

	_, err := db.NewInsert().Model(&noteDao{Body: "a"}).Exec(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pgutil.RowCount(t, db, "notes"))

	require.NoError(t, TruncateTables(ctx, db, &noteDao{}))
	require.Equal(t, 0, pgutil.RowCount(t, db, "notes"))

	require.NoError(t, DropTables(ctx, db, &noteDao{}))
	require.NoError(t, DropTables(ctx, db, &noteDao{}))
	pgutil.RequireTable(t, db, "notes", false)
}

func TestModelIndexName_NilModel(t *testing.T) {
	_, err := modelIndexName(nil, nil, "tag")
	require.Error(t, err)
}
