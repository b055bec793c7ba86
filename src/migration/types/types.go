package types

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// A schema change. Up and Down run inside the same transaction that records
// the resulting version, so a failed migration leaves no trace.
type Migration interface {
	Version() MigrationVersion
	Name() string
	Description() string
	Up(ctx context.Context, tx pgx.Tx) error
	Down(ctx context.Context, tx pgx.Tx) error
}

// Migrations are identified by the UTC instant they were created. The zero
// value means "no migration" or, as a target, "latest".
type MigrationVersion time.Time

func ParseMigrationVersion(s string) (MigrationVersion, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return MigrationVersion{}, err
	}
	return MigrationVersion(t.UTC()), nil
}

func (v MigrationVersion) String() string {
	return time.Time(v).UTC().Format(time.RFC3339)
}

func (v MigrationVersion) Before(other MigrationVersion) bool {
	return time.Time(v).Before(time.Time(other))
}

func (v MigrationVersion) Equal(other MigrationVersion) bool {
	return time.Time(v).Equal(time.Time(other))
}

func (v MigrationVersion) IsZero() bool {
	return time.Time(v).IsZero()
}
