package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bastion-labs/authgate"
)

// openStore opens the configured database with the schema applied and
// returns the account store over it. The caller owns closing the DB.
func openStore(ctx context.Context) (authgate.AccountStore, *bun.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := authgate.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return authgate.NewAccountStore(db, nil), db, nil
}
