package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/snapwall/snapwall/src/migration/types"
)

func init() {
	registerMigration(Initial{})
}

type Initial struct{}

func (m Initial) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 3, 2, 19, 5, 12, 0, time.UTC))
}

func (m Initial) Name() string {
	return "Initial"
}

func (m Initial) Description() string {
	return "Create users, images, likes and banned tables"
}

func (m Initial) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(80) NOT NULL,
			password_hash TEXT NOT NULL,
			last_ip VARCHAR(45),
			CONSTRAINT users_username_key UNIQUE (username)
		);

		CREATE TABLE images (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			stored_filename VARCHAR(255) NOT NULL,
			original_filename VARCHAR(255) NOT NULL,
			description TEXT,
			location VARCHAR(255),
			location_is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
			location_password_hash TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT images_stored_filename_key UNIQUE (stored_filename)
		);
		CREATE INDEX images_created_at ON images (created_at DESC, id DESC);

		CREATE TABLE likes (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			image_id INT NOT NULL REFERENCES images (id) ON DELETE CASCADE,
			CONSTRAINT likes_user_id_image_id_key UNIQUE (user_id, image_id)
		);
		CREATE INDEX likes_image_id ON likes (image_id);

		CREATE TABLE banned (
			id SERIAL PRIMARY KEY,
			ip VARCHAR(45) NOT NULL,
			CONSTRAINT banned_ip_key UNIQUE (ip)
		);
		`,
	)
	return err
}

func (m Initial) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE banned;
		DROP TABLE likes;
		DROP TABLE images;
		DROP TABLE users;
		`,
	)
	return err
}
