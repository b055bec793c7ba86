package imgdata

import (
	"context"
	"errors"

	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/perf"
)

// Likes an image. The (user_id, image_id) unique constraint decides whether
// this is a repeat, so concurrent likes can never double count.
func Like(ctx context.Context, conn db.ConnOrTx, userID, imageID int) error {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Like image").End()

	_, err := FetchImage(ctx, conn, imageID)
	if errors.Is(err, db.NotFound) {
		return ErrImageNotFound
	} else if err != nil {
		return err
	}

	tag, err := conn.Exec(ctx,
		`
		INSERT INTO likes (user_id, image_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, image_id) DO NOTHING
		`,
		userID,
		imageID,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err, "") {
			// Deleted out from under us.
			return ErrImageNotFound
		}
		return oops.New(err, "failed to like image")
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyLiked
	}
	return nil
}

func Unlike(ctx context.Context, conn db.ConnOrTx, userID, imageID int) error {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Unlike image").End()

	tag, err := conn.Exec(ctx, "DELETE FROM likes WHERE user_id = $1 AND image_id = $2", userID, imageID)
	if err != nil {
		return oops.New(err, "failed to unlike image")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotLiked
	}
	return nil
}
