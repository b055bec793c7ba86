package imgdata

import (
	"context"
	"errors"
	"strings"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/utils"
)

/*
Creates a new account and records ip as its last known address. The username
is trimmed; an empty username or password fails with ErrMissingCredentials.
*/
func CreateUser(ctx context.Context, conn db.ConnOrTx, username, password, ip string) (*models.User, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Create user").End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO users (username, password_hash, last_ip)
		VALUES ($1, $2, $3)
		RETURNING $columns
		`,
		username,
		auth.HashPassword(password).String(),
		utils.NilIfZero(ip),
	)
	if err != nil {
		if db.IsUniqueViolation(err, "users_username_key") {
			return nil, ErrDuplicateUsername
		}
		return nil, oops.New(err, "failed to create user")
	}
	return user, nil
}

/*
Checks a username and password. On success the user's last_ip is overwritten
with ip. Unknown users and wrong passwords both fail with ErrInvalidCredentials,
and leave the database untouched.
*/
func Authenticate(ctx context.Context, conn db.ConnOrTx, username, password, ip string) (*models.User, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Authenticate user").End()

	user, err := FetchUserByUsername(ctx, conn, strings.TrimSpace(username))
	if errors.Is(err, db.NotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordString(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if ip != "" {
		_, err = conn.Exec(ctx, "UPDATE users SET last_ip = $1 WHERE id = $2", ip, user.ID)
		if err != nil {
			return nil, oops.New(err, "failed to record login IP")
		}
		user.LastIP = &ip
	}
	return user, nil
}

// Returns db.NotFound if there is no such user.
func FetchUser(ctx context.Context, conn db.ConnOrTx, id int) (*models.User, error) {
	user, err := db.QueryOne[models.User](ctx, conn, "SELECT $columns FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch user")
	}
	return user, nil
}

// Returns db.NotFound if there is no such user.
func FetchUserByUsername(ctx context.Context, conn db.ConnOrTx, username string) (*models.User, error) {
	user, err := db.QueryOne[models.User](ctx, conn, "SELECT $columns FROM users WHERE username = $1", username)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch user")
	}
	return user, nil
}

type UserWithBan struct {
	models.User
	IsBanned bool
}

/*
Lists users for the admin console, ordered by id. A non-empty ipFilter keeps
only users whose last IP contains it as a substring. Each user is marked as
banned when their last IP is on the ban list.
*/
func ListUsers(ctx context.Context, conn db.ConnOrTx, ipFilter string) ([]UserWithBan, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "List users").End()

	var qb db.QueryBuilder
	qb.Add(`
		SELECT $columns
		FROM users
		WHERE
			TRUE
	`)
	qb.AddIf(ipFilter != "", `AND strpos(last_ip, $?) > 0`, ipFilter)
	qb.Add(`ORDER BY id ASC`)

	users, err := db.Query[models.User](ctx, conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to list users")
	}

	var ips []string
	for _, u := range users {
		if u.LastIP != nil {
			ips = append(ips, *u.LastIP)
		}
	}
	bannedIPs, err := db.QueryScalar[string](ctx, conn, "SELECT ip FROM banned WHERE ip = ANY($1)", ips)
	if err != nil {
		return nil, oops.New(err, "failed to fetch banned IPs")
	}
	isBanned := make(map[string]bool, len(bannedIPs))
	for _, ip := range bannedIPs {
		isBanned[ip] = true
	}

	result := make([]UserWithBan, len(users))
	for i, u := range users {
		result[i] = UserWithBan{
			User:     *u,
			IsBanned: u.LastIP != nil && isBanned[*u.LastIP],
		}
	}
	return result, nil
}

func SetAdmin(ctx context.Context, conn db.ConnOrTx, username string, isAdmin bool) error {
	tag, err := conn.Exec(ctx, "UPDATE users SET is_admin = $1 WHERE username = $2", isAdmin, username)
	if err != nil {
		return oops.New(err, "failed to update admin flag")
	} else if tag.RowsAffected() < 1 {
		return ErrUserNotFound
	}
	return nil
}

func SetPassword(ctx context.Context, conn db.ConnOrTx, username, password string) error {
	if password == "" {
		return ErrMissingCredentials
	}
	tag, err := conn.Exec(ctx,
		"UPDATE users SET password_hash = $1 WHERE username = $2",
		auth.HashPassword(password).String(),
		username,
	)
	if err != nil {
		return oops.New(err, "failed to update password")
	} else if tag.RowsAffected() < 1 {
		return ErrUserNotFound
	}
	return nil
}
