package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/snapwall/snapwall/src/migration/types"
)

func init() {
	registerMigration(AddSessionTable{})
}

type AddSessionTable struct{}

func (m AddSessionTable) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 3, 9, 21, 14, 47, 0, time.UTC))
}

func (m AddSessionTable) Name() string {
	return "AddSessionTable"
}

func (m AddSessionTable) Description() string {
	return "Store sessions server-side, along with unlocked image locations"
}

func (m AddSessionTable) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE sessions (
			id VARCHAR(64) PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			csrf_token VARCHAR(64) NOT NULL,
			unlocked_image_ids INT[] NOT NULL DEFAULT '{}'
		);
		CREATE INDEX sessions_expires_at ON sessions (expires_at);
		`,
	)
	return err
}

func (m AddSessionTable) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DROP TABLE sessions;`)
	return err
}
