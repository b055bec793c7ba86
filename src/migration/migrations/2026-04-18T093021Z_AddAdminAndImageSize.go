package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/snapwall/snapwall/src/migration/types"
)

func init() {
	registerMigration(AddAdminAndImageSize{})
}

type AddAdminAndImageSize struct{}

func (m AddAdminAndImageSize) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 4, 18, 9, 30, 21, 0, time.UTC))
}

func (m AddAdminAndImageSize) Name() string {
	return "AddAdminAndImageSize"
}

func (m AddAdminAndImageSize) Description() string {
	return "Replace the admin username check with a flag, and record image dimensions"
}

func (m AddAdminAndImageSize) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE users
			ADD COLUMN is_admin BOOLEAN NOT NULL DEFAULT FALSE;
		UPDATE users SET is_admin = TRUE WHERE username = 'admin';

		ALTER TABLE images
			ADD COLUMN width INT NOT NULL DEFAULT 0,
			ADD COLUMN height INT NOT NULL DEFAULT 0;
		`,
	)
	return err
}

func (m AddAdminAndImageSize) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE images
			DROP COLUMN width,
			DROP COLUMN height;
		ALTER TABLE users
			DROP COLUMN is_admin;
		`,
	)
	return err
}
