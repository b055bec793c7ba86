package imgdata

import (
	"context"
	"errors"

	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/perf"
)

func IsBanned(ctx context.Context, conn db.ConnOrTx, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}

	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Check ban list").End()
	banned, err := db.QueryOneScalar[bool](ctx, conn, "SELECT EXISTS(SELECT 1 FROM banned WHERE ip = $1)", ip)
	if err != nil {
		return false, oops.New(err, "failed to check ban list")
	}
	return banned, nil
}

// Adds an IP to the ban list. Returns ErrAlreadyBanned if it was already
// there.
func BanIP(ctx context.Context, conn db.ConnOrTx, ip string) error {
	tag, err := conn.Exec(ctx, "INSERT INTO banned (ip) VALUES ($1) ON CONFLICT (ip) DO NOTHING", ip)
	if err != nil {
		return oops.New(err, "failed to ban IP")
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyBanned
	}
	return nil
}

// Removes an IP from the ban list. Returns ErrNotBanned if it wasn't there.
func UnbanIP(ctx context.Context, conn db.ConnOrTx, ip string) error {
	tag, err := conn.Exec(ctx, "DELETE FROM banned WHERE ip = $1", ip)
	if err != nil {
		return oops.New(err, "failed to unban IP")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotBanned
	}
	return nil
}

/*
Bans the last IP the user was seen from. Anyone else sharing that address is
banned along with them. The returned user carries the IP that was banned.
*/
func BanUser(ctx context.Context, conn db.ConnOrTx, userID int) (*models.User, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Ban user").End()

	user, err := FetchUser(ctx, conn, userID)
	if errors.Is(err, db.NotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	if user.LastIPString() == "" {
		return nil, ErrNoIPToBan
	}

	if err := BanIP(ctx, conn, *user.LastIP); err != nil {
		return nil, err
	}
	return user, nil
}

func UnbanUser(ctx context.Context, conn db.ConnOrTx, userID int) (*models.User, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Unban user").End()

	user, err := FetchUser(ctx, conn, userID)
	if errors.Is(err, db.NotFound) {
		return nil, ErrUserOrIPNotFound
	} else if err != nil {
		return nil, err
	}
	if user.LastIPString() == "" {
		return nil, ErrUserOrIPNotFound
	}

	if err := UnbanIP(ctx, conn, *user.LastIP); err != nil {
		return nil, err
	}
	return user, nil
}
