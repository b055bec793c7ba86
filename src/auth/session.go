package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/jobs"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
)

const SessionCookieName = "SnapwallSession"

const sessionDuration = time.Hour * 24 * 14

const CSRFFieldName = "csrf_token"

func makeSessionId() string {
	return randomString(40)
}

func makeCSRFToken() string {
	return randomString(30)
}

func randomString(length int) string {
	idBytes := make([]byte, length)
	_, err := io.ReadFull(rand.Reader, idBytes)
	if err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(idBytes)[:length]
}

var ErrNoSession = errors.New("no session found")

func GetSession(ctx context.Context, conn db.ConnOrTx, id string) (*models.Session, error) {
	sess, err := db.QueryOne[models.Session](ctx, conn,
		`
		SELECT $columns
		FROM sessions
		WHERE id = $1 AND expires_at > CURRENT_TIMESTAMP
		`,
		id,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, ErrNoSession
		} else {
			return nil, oops.New(err, "failed to get session")
		}
	}

	return sess, nil
}

func CreateSession(ctx context.Context, conn db.ConnOrTx, userID int) (*models.Session, error) {
	session := models.Session{
		ID:               makeSessionId(),
		UserID:           userID,
		ExpiresAt:        time.Now().Add(sessionDuration),
		CSRFToken:        makeCSRFToken(),
		UnlockedImageIDs: []int{},
	}

	_, err := conn.Exec(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, csrf_token) VALUES ($1, $2, $3, $4)",
		session.ID, session.UserID, session.ExpiresAt, session.CSRFToken,
	)
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}

	return &session, nil
}

// Deletes a session by id. If no session with that id exists, no
// error is returned.
func DeleteSession(ctx context.Context, conn db.ConnOrTx, id string) error {
	_, err := conn.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}

	return nil
}

// Records that the session may see the hidden location of an image. Adding an
// image twice is a no-op.
func AddUnlockedImage(ctx context.Context, conn db.ConnOrTx, sess *models.Session, imageID int) error {
	if sess.HasUnlocked(imageID) {
		return nil
	}

	ids, err := db.QueryOneScalar[[]int](ctx, conn,
		`
		UPDATE sessions
		SET unlocked_image_ids = array_append(unlocked_image_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(unlocked_image_ids))
		RETURNING unlocked_image_ids
		`,
		sess.ID,
		imageID,
	)
	if errors.Is(err, db.NotFound) {
		// Either the session is gone or a concurrent request got there first.
		sess.UnlockedImageIDs = append(sess.UnlockedImageIDs, imageID)
		return nil
	} else if err != nil {
		return oops.New(err, "failed to record unlocked image")
	}

	sess.UnlockedImageIDs = ids
	return nil
}

func NewSessionCookie(session *models.Session) (*http.Cookie, error) {
	token, err := EncodeSessionToken(config.Config.Auth.SecretKey, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:  SessionCookieName,
		Value: token,
		Path:  "/",

		Domain:  config.Config.Auth.CookieDomain,
		Expires: session.ExpiresAt,

		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Returns the session id from a session cookie, or ErrNoSession if the cookie
// is absent or its signature does not check out.
func SessionIDFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", ErrNoSession
	}
	id, err := DecodeSessionToken(config.Config.Auth.SecretKey, cookie.Value)
	if err != nil {
		return "", ErrNoSession
	}
	return id, nil
}

func DeleteSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:   SessionCookieName,
		Path:   "/",
		Domain: config.Config.Auth.CookieDomain,
		MaxAge: -1,
	}
}

func DeleteExpiredSessions(ctx context.Context, conn db.ConnOrTx) (int64, error) {
	tag, err := conn.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}

	return tag.RowsAffected(), nil
}

func PeriodicallyDeleteExpiredSessions(conn db.ConnOrTx) *jobs.Job {
	return jobs.Every("delete expired sessions", time.Hour, func(ctx context.Context, logger *zerolog.Logger) error {
		n, err := DeleteExpiredSessions(ctx, conn)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
		}
		return nil
	})
}
