package website

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

type AdminPageData struct {
	templates.BaseData
	FilterUrl string
	IPFilter  string
	Users     []templates.AdminUser
}

func AdminIndex(c *RequestContext) ResponseData {
	ipFilter := strings.TrimSpace(c.Req.URL.Query().Get("ip"))

	users, err := imgdata.ListUsers(c, c.Conn, ipFilter)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to list users"))
	}

	templateUsers := make([]templates.AdminUser, 0, len(users))
	for _, u := range users {
		templateUsers = append(templateUsers, templates.AdminUserToTemplate(u))
	}

	baseData := getBaseData(c, "Admin")
	if ipFilter != "" && len(users) == 0 {
		baseData.AddImmediateNotice("warn", fmt.Sprintf("No users with an IP matching %q", ipFilter))
	}

	var res ResponseData
	res.MustWriteTemplate("admin.html", AdminPageData{
		BaseData:  baseData,
		FilterUrl: urls.BuildAdmin(""),
		IPFilter:  ipFilter,
		Users:     templateUsers,
	}, c.Perf)
	return res
}

func AdminBan(c *RequestContext) ResponseData {
	userID, ok := c.PathParamInt("userid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildAdmin(""), "failure", imgdata.ErrUserNotFound.Error())
	}

	user, err := imgdata.BanUser(c, c.Conn, userID)
	if err != nil {
		return c.handleDataError(err, urls.BuildAdmin(""), "failed to ban user")
	}

	c.Logger.Info().Int("bannedUserId", user.ID).Str("ip", user.LastIPString()).Msg("admin banned user")
	return c.RedirectWithNotice(urls.BuildAdmin(""), "success",
		fmt.Sprintf("User %s banned by IP %s", user.Username, user.LastIPString()))
}

func AdminUnban(c *RequestContext) ResponseData {
	userID, ok := c.PathParamInt("userid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildAdmin(""), "failure", imgdata.ErrUserOrIPNotFound.Error())
	}

	user, err := imgdata.UnbanUser(c, c.Conn, userID)
	if err != nil {
		return c.handleDataError(err, urls.BuildAdmin(""), "failed to unban user")
	}

	c.Logger.Info().Int("unbannedUserId", user.ID).Str("ip", user.LastIPString()).Msg("admin unbanned user")
	return c.RedirectWithNotice(urls.BuildAdmin(""), "success", "User unbanned successfully")
}

func Health(c *RequestContext) ResponseData {
	var res ResponseData
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.Write([]byte("OK"))
	return res
}
