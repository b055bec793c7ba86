/*
This package contains lowish-level APIs for making database queries to our Postgres database. It streamlines the process of mapping query results to Go types, while allowing you to write arbitrary SQL queries.

The primary functions are Query and QueryOne, with QueryScalar and QueryOneScalar for single columns.

Query syntax

Arguments can be provided using placeholders like $1, $2, etc. All arguments will be safely escaped and mapped from their Go type to the correct Postgres type. (This is a direct proxy to pgx.)

	imageIDs, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT id
		FROM images
		WHERE
			user_id = ANY($1)
			AND location_hidden = $2
		`,
		[]int{1, 2},
		false,
	)

(If you want to use a slice in your query, use Postgres arrays instead of IN.)

To query multiple columns at once, use a struct type with `db:"column_name"` tags, and the special $columns placeholder:

	type Image struct {
		ID        int       `db:"id"`
		Filename  string    `db:"filename"`
		CreatedAt time.Time `db:"created_at"`
	}
	images, err := db.Query[Image](ctx, conn, `SELECT $columns FROM images`)
	// Resulting query:
	// SELECT id, filename, created_at FROM images

Every exported field must either name a column or be tagged `db:"-"`.

When a JOIN makes column names ambiguous, include a table prefix like $columns{prefix}:

	images, err := db.Query[Image](ctx, conn, `
		SELECT $columns{img}
		FROM
			images AS img
			JOIN users AS u ON u.id = img.user_id
		WHERE u.username = $1
	`, "alice")
	// Resulting query:
	// SELECT img.id, img.filename, img.created_at FROM ...

For queries assembled piece by piece, QueryBuilder numbers `$?` placeholders for you.
*/
package db
