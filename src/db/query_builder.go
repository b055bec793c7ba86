package db

import (
	"fmt"
	"strconv"
	"strings"
)

/*
QueryBuilder assembles a statement from fragments that each use `$?` for their
own arguments. The placeholders are renumbered as fragments are appended:

	qb.Add("WHERE user_id = $?", 4)        // WHERE user_id = $1
	qb.Add("AND id > $? AND id < $?", 1, 9) // AND id > $2 AND id < $3
*/
type QueryBuilder struct {
	sql  strings.Builder
	args []any
}

// Add appends a fragment. It panics if the number of arguments does not match
// the number of placeholders, since that is always a programming error.
func (qb *QueryBuilder) Add(sql string, args ...any) {
	if n := strings.Count(sql, "$?"); n != len(args) {
		panic(fmt.Errorf("cannot add chunk to query; expected %d arguments but got %d", n, len(args)))
	}

	rest := sql
	for {
		before, after, found := strings.Cut(rest, "$?")
		qb.sql.WriteString(before)
		if !found {
			break
		}
		qb.args = append(qb.args, args[0])
		args = args[1:]
		qb.sql.WriteString("$" + strconv.Itoa(len(qb.args)))
		rest = after
	}
	qb.sql.WriteByte('\n')
}

// AddIf appends the fragment only when cond holds. Handy for optional filters.
func (qb *QueryBuilder) AddIf(cond bool, sql string, args ...any) {
	if cond {
		qb.Add(sql, args...)
	}
}

func (qb *QueryBuilder) String() string {
	return qb.sql.String()
}

func (qb *QueryBuilder) Args() []any {
	return qb.args
}
