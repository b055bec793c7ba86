package imgdata

import (
	"context"
	"errors"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/utils"
)

type UploadInput struct {
	Filename string // as sent by the client
	Content  []byte

	Description      string
	HideLocation     bool
	Location         string
	LocationPassword string
}

/*
Stores a new image for userID. The bytes are written to the store before the
row is inserted; if the insert fails, the object is deleted again so no
orphans are left behind.
*/
func CreateImage(ctx context.Context, conn db.ConnOrTx, store storage.Store, userID int, in UploadInput) (*models.Image, error) {
	if in.Filename == "" || len(in.Content) == 0 {
		return nil, ErrMissingFile
	}

	original := SanitizeFilename(in.Filename)
	ext, err := ImageExtension(original)
	if err != nil {
		return nil, err
	}
	info, err := SniffImage(in.Content)
	if err != nil {
		return nil, err
	}

	passwordHash, err := locationPasswordHash(in.HideLocation, in.LocationPassword, nil)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey(ext)
	objectName := storage.ObjectName(userID, key)

	b := perf.ExtractPerf(ctx).StartBlock("STORAGE", "Put image")
	err = store.Put(ctx, objectName, in.Content, info.ContentType)
	b.End()
	if err != nil {
		return nil, oops.New(err, "failed to store image bytes")
	}

	img, err := insertImage(ctx, conn, userID, key, original, info, in, passwordHash)
	if err != nil {
		if delErr := store.Delete(ctx, objectName); delErr != nil {
			logging.ExtractLogger(ctx).Error().Err(delErr).Str("object", objectName).Msg("Failed to clean up image after failed insert")
		}
		return nil, err
	}
	return img, nil
}

func insertImage(
	ctx context.Context,
	conn db.ConnOrTx,
	userID int,
	key, original string,
	info ImageInfo,
	in UploadInput,
	passwordHash *string,
) (*models.Image, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Insert image").End()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	img, err := db.QueryOne[models.Image](ctx, tx,
		`
		INSERT INTO images (
			user_id, stored_filename, original_filename, width, height,
			description, location, location_is_hidden, location_password_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING $columns
		`,
		userID,
		key,
		original,
		info.Width,
		info.Height,
		utils.NilIfZero(in.Description),
		utils.NilIfZero(in.Location),
		in.HideLocation,
		passwordHash,
	)
	if err != nil {
		return nil, oops.New(err, "failed to insert image")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, oops.New(err, "failed to commit image")
	}
	return img, nil
}

/*
Works out the location password hash for an image. When hiding, a new password
wins; an empty one may only keep the existing hash. When not hiding, the hash
is cleared.
*/
func locationPasswordHash(hide bool, password string, existing *string) (*string, error) {
	if !hide {
		return nil, nil
	}
	if password != "" {
		hash := auth.HashPassword(password).String()
		return &hash, nil
	}
	if existing != nil && *existing != "" {
		return existing, nil
	}
	return nil, ErrMissingPassword
}

// Returns db.NotFound if there is no such image.
func FetchImage(ctx context.Context, conn db.ConnOrTx, id int) (*models.Image, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch image").End()

	img, err := db.QueryOne[models.Image](ctx, conn, "SELECT $columns FROM images WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch image")
	}
	return img, nil
}

// Fetches an image for its owner. Missing and foreign images are both
// reported as ErrAccessDenied.
func FetchOwnedImage(ctx context.Context, conn db.ConnOrTx, id, userID int) (*models.Image, error) {
	img, err := FetchImage(ctx, conn, id)
	if errors.Is(err, db.NotFound) {
		return nil, ErrAccessDenied
	} else if err != nil {
		return nil, err
	}
	if !img.OwnedBy(userID) {
		return nil, ErrAccessDenied
	}
	return img, nil
}

type ImageListing struct {
	Image         *models.Image
	OwnerUsername string
	OwnedByViewer bool
	LikesCount    int
	LikedByViewer bool

	// Nil when there is no location or the viewer may not see it.
	VisibleLocation *string
}

// A hidden location is visible to the owner and to sessions that have
// unlocked it.
func LocationVisible(img *models.Image, viewerID int, sess *models.Session) bool {
	if !img.LocationIsHidden || img.OwnedBy(viewerID) {
		return true
	}
	return sess != nil && sess.HasUnlocked(img.ID)
}

/*
Lists every image from every user, newest first, as seen by the given viewer.
*/
func ListImages(ctx context.Context, conn db.ConnOrTx, viewerID int, sess *models.Session) ([]ImageListing, error) {
	p := perf.ExtractPerf(ctx)

	b := p.StartBlock("SQL", "Fetch images")
	images, err := db.Query[models.Image](ctx, conn,
		`
		SELECT $columns
		FROM images
		ORDER BY created_at DESC, id DESC
		`,
	)
	b.End()
	if err != nil {
		return nil, oops.New(err, "failed to fetch images")
	}
	if len(images) == 0 {
		return nil, nil
	}

	imageIDs := make([]int, len(images))
	ownerIDs := make([]int, 0, len(images))
	for i, img := range images {
		imageIDs[i] = img.ID
		ownerIDs = append(ownerIDs, img.UserID)
	}

	type ownerRow struct {
		ID       int    `db:"id"`
		Username string `db:"username"`
	}
	b = p.StartBlock("SQL", "Fetch image owners")
	owners, err := db.Query[ownerRow](ctx, conn, "SELECT $columns FROM users WHERE id = ANY($1)", ownerIDs)
	b.End()
	if err != nil {
		return nil, oops.New(err, "failed to fetch image owners")
	}
	usernames := make(map[int]string, len(owners))
	for _, o := range owners {
		usernames[o.ID] = o.Username
	}

	type likeRow struct {
		ImageID       int  `db:"image_id"`
		LikesCount    int  `db:"likes_count"`
		LikedByViewer bool `db:"liked_by_viewer"`
	}
	b = p.StartBlock("SQL", "Fetch like counts")
	likes, err := db.Query[likeRow](ctx, conn,
		`
		SELECT
			image_id,
			COUNT(*) AS likes_count,
			bool_or(user_id = $2) AS liked_by_viewer
		FROM likes
		WHERE image_id = ANY($1)
		GROUP BY image_id
		`,
		imageIDs,
		viewerID,
	)
	b.End()
	if err != nil {
		return nil, oops.New(err, "failed to fetch like counts")
	}
	likesByImage := make(map[int]*likeRow, len(likes))
	for _, l := range likes {
		likesByImage[l.ImageID] = l
	}

	result := make([]ImageListing, len(images))
	for i, img := range images {
		listing := ImageListing{
			Image:         img,
			OwnerUsername: usernames[img.UserID],
			OwnedByViewer: img.OwnedBy(viewerID),
		}
		if l, ok := likesByImage[img.ID]; ok {
			listing.LikesCount = l.LikesCount
			listing.LikedByViewer = l.LikedByViewer
		}
		if img.Location != nil && LocationVisible(img, viewerID, sess) {
			listing.VisibleLocation = img.Location
		}
		result[i] = listing
	}
	return result, nil
}

type EditInput struct {
	Description      string
	HideLocation     bool
	Location         string
	LocationPassword string
}

/*
Updates an image's description and location settings. Only the owner may edit;
anyone else gets ErrAccessDenied. Empty strings are stored as NULL.
*/
func UpdateImage(ctx context.Context, conn db.ConnOrTx, imageID, userID int, in EditInput) error {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Update image").End()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	img, err := db.QueryOne[models.Image](ctx, tx, "SELECT $columns FROM images WHERE id = $1 FOR UPDATE", imageID)
	if errors.Is(err, db.NotFound) {
		return ErrAccessDenied
	} else if err != nil {
		return oops.New(err, "failed to fetch image for update")
	}
	if !img.OwnedBy(userID) {
		return ErrAccessDenied
	}

	var existing *string
	if img.LocationIsHidden {
		existing = img.LocationPasswordHash
	}
	passwordHash, err := locationPasswordHash(in.HideLocation, in.LocationPassword, existing)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`
		UPDATE images
		SET
			description = $2,
			location = $3,
			location_is_hidden = $4,
			location_password_hash = $5
		WHERE id = $1
		`,
		imageID,
		utils.NilIfZero(in.Description),
		utils.NilIfZero(in.Location),
		in.HideLocation,
		passwordHash,
	)
	if err != nil {
		return oops.New(err, "failed to update image")
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.New(err, "failed to commit image update")
	}
	return nil
}

/*
Deletes an image owned by userID. The stored object goes first; if that fails
the row is kept and ErrDeleteFailed is returned, so the image stays valid.
*/
func DeleteImage(ctx context.Context, conn db.ConnOrTx, store storage.Store, imageID, userID int) error {
	img, err := FetchOwnedImage(ctx, conn, imageID, userID)
	if err != nil {
		return err
	}

	objectName := storage.ObjectName(img.UserID, img.StoredFilename)
	b := perf.ExtractPerf(ctx).StartBlock("STORAGE", "Delete image")
	err = store.Delete(ctx, objectName)
	b.End()
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Str("object", objectName).Msg("Failed to delete image object")
		return ErrDeleteFailed
	}

	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Delete image").End()
	_, err = conn.Exec(ctx, "DELETE FROM images WHERE id = $1 AND user_id = $2", imageID, userID)
	if err != nil {
		return oops.New(err, "failed to delete image row")
	}
	return nil
}

/*
Checks the location password of an image and, on a match, records the unlock
in the session. Every failure, including a missing image or one without a
hidden location, is reported as ErrWrongPassword.
*/
func UnlockLocation(ctx context.Context, conn db.ConnOrTx, sess *models.Session, imageID int, password string) error {
	img, err := FetchImage(ctx, conn, imageID)
	if errors.Is(err, db.NotFound) {
		return ErrWrongPassword
	} else if err != nil {
		return err
	}

	if !img.LocationIsHidden || !img.HasPassword() {
		return ErrWrongPassword
	}
	if !auth.CheckPasswordString(password, *img.LocationPasswordHash) {
		return ErrWrongPassword
	}

	return auth.AddUnlockedImage(ctx, conn, sess, img.ID)
}
