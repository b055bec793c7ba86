package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/snapwall/snapwall/src/oops"
)

/*
A general error to be used when no results are found. This is the error returned
by QueryOne, and can generally be used by other database helpers that fetch a single
result but find nothing.
*/
var NotFound = errors.New("not found")

/*
Performs a SQL query and returns a slice of all the result rows. The query is just plain SQL, but make sure to read the package documentation for details. You must explicitly provide the type argument - this is how it knows what Go type to map the results to, and it cannot be inferred.

This function always returns pointers to the values. This is convenient for structs, but for other types, you may wish to use QueryScalar.
*/
func Query[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]*T, error) {
	rows, err := queryRows[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	result, err := pgx.CollectRows(rows, rowMapper[T]())
	if err != nil {
		return nil, oops.New(err, "error while iterating through db results")
	}
	return result, nil
}

/*
Identical to Query, but returns only the first result row. If there are no
rows in the result set, returns NotFound.
*/
func QueryOne[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (*T, error) {
	rows, err := queryRows[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, NotFound
	}

	result, err := rowMapper[T]()(rows)
	if err != nil {
		return nil, oops.New(err, "failed to scan db result")
	}
	return result, nil
}

/*
Identical to Query, but returns concrete values instead of pointers. More convenient
for primitive types.
*/
func QueryScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	result, err := pgx.CollectRows(rows, pgx.RowTo[T])
	if err != nil {
		return nil, oops.New(err, "error while iterating through db results")
	}
	return result, nil
}

/*
Identical to QueryScalar, but returns only the first result value. If there are
no rows in the result set, returns NotFound.
*/
func QueryOneScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (T, error) {
	var result T
	err := conn.QueryRow(ctx, query, args...).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, NotFound
		}
		return result, err
	}
	return result, nil
}

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// Reports whether err came from Postgres rejecting a row because of a unique
// constraint. If constraint is non-empty, it must also match by name.
func IsUniqueViolation(err error, constraint string) bool {
	return isConstraintError(err, uniqueViolation, constraint)
}

// Like IsUniqueViolation, for rows referencing something that doesn't exist.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isConstraintError(err, foreignKeyViolation, constraint)
}

func isConstraintError(err error, code string, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func queryRows[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) (pgx.Rows, error) {
	var destExample T
	compiled := compileQuery(query, reflect.TypeOf(destExample))

	rows, err := conn.Query(ctx, compiled, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func rowMapper[T any]() pgx.RowToFunc[*T] {
	var destExample T
	if isStructWithColumns(reflect.TypeOf(destExample)) {
		return pgx.RowToAddrOfStructByName[T]
	}
	return pgx.RowToAddrOf[T]
}

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

func compileQuery(query string, destType reflect.Type) string {
	columnsMatch := reColumnsPlaceholder.FindStringSubmatch(query)
	if columnsMatch == nil {
		return query
	}

	// The presence of the $columns placeholder means that the destination type
	// must be a struct, and we will plonk that struct's fields into the query.
	if !isStructWithColumns(destType) {
		panic("$columns can only be used when querying into a struct")
	}

	columnNames := getColumnNames(destType)
	prefix := columnsMatch[2]

	columns := make([]string, 0, len(columnNames))
	for _, name := range columnNames {
		if prefix != "" {
			name = prefix + "." + name
		}
		columns = append(columns, name)
	}

	return reColumnsPlaceholder.ReplaceAllString(query, strings.Join(columns, ", "))
}

var timeType = reflect.TypeOf(time.Time{})

func isStructWithColumns(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return len(getColumnNames(t)) > 0
}

// Only flat structs are supported. Fields tagged `db:"-"` (or untagged) are
// not columns.
func getColumnNames(destType reflect.Type) []string {
	if destType.Kind() == reflect.Ptr {
		destType = destType.Elem()
	}
	if destType.Kind() != reflect.Struct {
		panic(fmt.Errorf("can only get column names from a struct, got type '%v'", destType))
	}

	var names []string
	for _, field := range reflect.VisibleFields(destType) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name := field.Tag.Get("db")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return names
}
