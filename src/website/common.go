package website

import (
	"errors"
	"net/http"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
)

func loadCommonData(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		b := c.Perf.StartBlock("MIDDLEWARE", "Load common website data")
		// A missing cookie or one with a bad signature just means no session.
		if sessionID, err := auth.SessionIDFromRequest(c.Req); err == nil {
			user, session, err := getCurrentUserAndSession(c, sessionID)
			if err != nil {
				b.End()
				return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to get current user"))
			}

			c.CurrentUser = user
			c.CurrentSession = session
		}
		b.End()

		if c.CurrentUser != nil {
			logger := c.Logger.With().Int("userId", c.CurrentUser.ID).Logger()
			c.Logger = &logger
		}

		return h(c)
	}
}

// Given a session id, fetches user data from the database. Will return nil if
// the user cannot be found, and will only return an error if it's serious.
func getCurrentUserAndSession(c *RequestContext, sessionId string) (*models.User, *models.Session, error) {
	session, err := auth.GetSession(c, c.Conn, sessionId)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return nil, nil, nil
		} else {
			return nil, nil, oops.New(err, "failed to get current session")
		}
	}

	user, err := imgdata.FetchUser(c, c.Conn, session.UserID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			c.Logger.Debug().Int("userId", session.UserID).Msg("returning no current user for this request because the user for the session couldn't be found")
			return nil, nil, nil
		} else {
			return nil, nil, oops.New(err, "failed to get user for session")
		}
	}

	return user, session, nil
}
