package db

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type columnsTestRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	Computed  bool      `db:"-"`
}

func TestCompileQuery(t *testing.T) {
	destType := reflect.TypeOf(columnsTestRow{})

	t.Run("no placeholder", func(t *testing.T) {
		assert.Equal(t, "SELECT 1", compileQuery("SELECT 1", destType))
	})
	t.Run("columns", func(t *testing.T) {
		assert.Equal(t,
			"SELECT id, name, created_at FROM things",
			compileQuery("SELECT $columns FROM things", destType),
		)
	})
	t.Run("prefixed columns", func(t *testing.T) {
		assert.Equal(t,
			"SELECT t.id, t.name, t.created_at FROM things AS t",
			compileQuery("SELECT $columns{t} FROM things AS t", destType),
		)
	})
	t.Run("scalar destination", func(t *testing.T) {
		assert.Panics(t, func() {
			compileQuery("SELECT $columns FROM things", reflect.TypeOf(0))
		})
	})
}

func TestIsStructWithColumns(t *testing.T) {
	assert.True(t, isStructWithColumns(reflect.TypeOf(columnsTestRow{})))
	assert.False(t, isStructWithColumns(reflect.TypeOf(0)))
	assert.False(t, isStructWithColumns(reflect.TypeOf(time.Time{})))
	assert.False(t, isStructWithColumns(reflect.TypeOf(struct{ X int }{})))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "likes_user_id_image_id_key"}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "likes_user_id_image_id_key"))
	assert.False(t, IsUniqueViolation(err, "users_username_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("nope"), ""))

	fkErr := &pgconn.PgError{Code: "23503", ConstraintName: "likes_image_id_fkey"}
	assert.True(t, IsForeignKeyViolation(fkErr, ""))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("wrapped: %w", fkErr), "likes_image_id_fkey"))
	assert.False(t, IsForeignKeyViolation(err, ""))
}

func TestQueryBuilder(t *testing.T) {
	var qb QueryBuilder
	qb.Add("SELECT * FROM images WHERE user_id = $?", 4)
	qb.Add("AND location_hidden = $? AND id > $?", false, 10)

	assert.Equal(t, "SELECT * FROM images WHERE user_id = $1\nAND location_hidden = $2 AND id > $3\n", qb.String())
	assert.Equal(t, []any{4, false, 10}, qb.Args())
	assert.Panics(t, func() {
		qb.Add("AND x = $?")
	})

	var filtered QueryBuilder
	filtered.Add("SELECT * FROM users WHERE TRUE")
	filtered.AddIf(false, "AND last_ip = $?", "10.0.0.1")
	filtered.AddIf(true, "AND id = $?", 2)
	assert.Equal(t, "SELECT * FROM users WHERE TRUE\nAND id = $1\n", filtered.String())
	assert.Equal(t, []any{2}, filtered.Args())
}
