package migration

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/migration/migrations"
	"github.com/snapwall/snapwall/src/migration/types"
	"github.com/snapwall/snapwall/src/oops"
)

var ErrUnknownVersion = errors.New("no migration with that version")

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func LatestVersion() types.MigrationVersion {
	allVersions := getSortedMigrationVersions()
	return allVersions[len(allVersions)-1]
}

func ensureMigrationTable(ctx context.Context, conn db.ConnOrTx) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS snapwall_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create migration table")
	}

	numRows, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM snapwall_migration")
	if err != nil {
		return oops.New(err, "failed to count migration rows")
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO snapwall_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			return oops.New(err, "failed to insert initial migration row")
		}
	}
	return nil
}

// Returns the zero version if migrations have never been run.
func CurrentVersion(ctx context.Context, conn db.ConnOrTx) (types.MigrationVersion, error) {
	if err := ensureMigrationTable(ctx, conn); err != nil {
		return types.MigrationVersion{}, err
	}

	currentVersion, err := db.QueryOneScalar[time.Time](ctx, conn, "SELECT version FROM snapwall_migration")
	if err != nil {
		return types.MigrationVersion{}, oops.New(err, "failed to get current version")
	}
	return types.MigrationVersion(currentVersion.UTC()), nil
}

func ListMigrations(ctx context.Context, conn db.ConnOrTx, out io.Writer) error {
	currentVersion, err := CurrentVersion(ctx, conn)
	if err != nil {
		return err
	}

	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Fprintf(out, "%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
	return nil
}

// Migrate rolls the schema forward or back to targetVersion. A zero target
// means the latest migration. Each migration runs in its own transaction.
func Migrate(ctx context.Context, conn db.ConnOrTx, targetVersion types.MigrationVersion) error {
	currentVersion, err := CurrentVersion(ctx, conn)
	if err != nil {
		return err
	}
	if currentVersion.IsZero() {
		logging.Info().Msg("This is the first time you have run database migrations.")
	} else {
		logging.Info().Str("version", currentVersion.String()).Msg("Current migration version")
	}

	allVersions := getSortedMigrationVersions()
	if targetVersion.IsZero() {
		targetVersion = allVersions[len(allVersions)-1]
	}

	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if currentVersion.Equal(version) {
			currentIndex = i
		}
		if targetVersion.Equal(version) {
			targetIndex = i
		}
	}

	if targetIndex < 0 {
		return oops.New(ErrUnknownVersion, "could not migrate to %v", targetVersion)
	}

	if currentIndex < targetIndex {
		for i := currentIndex + 1; i <= targetIndex; i++ {
			version := allVersions[i]
			migration := migrations.All[version]
			logging.Info().Str("version", version.String()).Str("name", migration.Name()).Msg("Applying migration")

			err := runInTx(ctx, conn, version, migration.Up)
			if err != nil {
				return oops.New(err, "migration %v failed", version)
			}
		}
	} else if currentIndex > targetIndex {
		for i := currentIndex; i > targetIndex; i-- {
			version := allVersions[i]
			previousVersion := types.MigrationVersion{}
			if i > 0 {
				previousVersion = allVersions[i-1]
			}
			migration := migrations.All[version]
			logging.Info().Str("version", version.String()).Str("name", migration.Name()).Msg("Rolling back migration")

			err := runInTx(ctx, conn, previousVersion, migration.Down)
			if err != nil {
				return oops.New(err, "rollback of migration %v failed", version)
			}
		}
	} else {
		logging.Info().Msg("Already migrated; nothing to do.")
	}

	return nil
}

func runInTx(
	ctx context.Context,
	conn db.ConnOrTx,
	resultingVersion types.MigrationVersion,
	step func(context.Context, pgx.Tx) error,
) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if err := step(ctx, tx); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "UPDATE snapwall_migration SET version = $1", time.Time(resultingVersion))
	if err != nil {
		return oops.New(err, "failed to update version in migrations table")
	}

	return tx.Commit(ctx)
}

//go:embed migrationTemplate.txt
var migrationTemplate string

// Writes a new migration file into src/migration/migrations and returns its path.
func MakeMigration(name, description string) (string, error) {
	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	now := time.Now().UTC()
	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	filename := fmt.Sprintf("%v_%v.go", safeVersion, name)
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(result), 0644)
	if err != nil {
		return "", oops.New(err, "failed to write migration file")
	}
	return path, nil
}
