package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/snapwall/snapwall/src/oops"
)

// Tables the application cannot run without.
var RequiredTables = []string{
	"users",
	"images",
	"likes",
	"banned",
	"sessions",
}

type MissingTablesError struct {
	Tables []string
}

func (e *MissingTablesError) Error() string {
	return fmt.Sprintf("database is missing required tables: %s (run `snapwall migrate`)", strings.Join(e.Tables, ", "))
}

// CheckTables verifies that every required table exists in the current schema.
func CheckTables(ctx context.Context, conn ConnOrTx) error {
	existing, err := QueryScalar[string](ctx, conn,
		`
		SELECT table_name
		FROM information_schema.tables
		WHERE
			table_schema = current_schema()
			AND table_name = ANY($1)
		`,
		RequiredTables,
	)
	if err != nil {
		return oops.New(err, "failed to check database tables")
	}

	found := make(map[string]bool, len(existing))
	for _, name := range existing {
		found[name] = true
	}

	var missing []string
	for _, name := range RequiredTables {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingTablesError{Tables: missing}
	}
	return nil
}
