package website

import (
	"net/http"

	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/oops"
)

/*
Turns away requests from banned IPs. Admins are never turned away, so they
can always get in and undo a ban. Routes that must stay reachable (login,
static files and so on) are simply registered without this middleware.
*/
func banGuard(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser != nil && c.CurrentUser.IsAdmin {
			return h(c)
		}

		ip := c.GetIP()
		if ip == "" {
			return h(c)
		}

		banned, err := imgdata.IsBanned(c, c.Conn, ip)
		if err != nil {
			return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to check ban list"))
		}
		if banned {
			c.Logger.Info().Str("ip", ip).Msg("turned away banned IP")
			return c.Redirect(config.Config.Auth.BannedRedirectUrl, http.StatusSeeOther)
		}

		return h(c)
	}
}
