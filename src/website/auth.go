package website

import (
	"net/http"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

func Index(c *RequestContext) ResponseData {
	if c.CurrentUser != nil {
		return c.Redirect(urls.BuildProfile(), http.StatusSeeOther)
	}
	return c.Redirect(urls.BuildLogin(), http.StatusSeeOther)
}

type AuthPageData struct {
	templates.BaseData
	SubmitUrl   string
	LoginUrl    string
	RegisterUrl string
	Username    string
}

func authPageData(c *RequestContext, title, submitUrl string) AuthPageData {
	return AuthPageData{
		BaseData:    getBaseData(c, title),
		SubmitUrl:   submitUrl,
		LoginUrl:    urls.BuildLogin(),
		RegisterUrl: urls.BuildRegister(),
	}
}

func LoginPage(c *RequestContext) ResponseData {
	if c.CurrentUser != nil {
		return c.Redirect(urls.BuildProfile(), http.StatusSeeOther)
	}

	var res ResponseData
	res.MustWriteTemplate("login.html", authPageData(c, "Log in", urls.BuildLogin()), c.Perf)
	return res
}

func Login(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.RedirectWithNotice(urls.BuildLogin(), "failure", imgdata.ErrInvalidCredentials.Error())
	}

	user, err := imgdata.Authenticate(c, c.Conn, form.Get("username"), form.Get("password"), c.GetIP())
	if err != nil {
		return c.handleDataError(err, urls.BuildLogin(), "failed to authenticate user")
	}

	c.Logger.Info().Int("userId", user.ID).Msg("user logged in")

	res := c.Redirect(urls.BuildProfile(), http.StatusSeeOther)
	if err := loginUser(c, user, &res); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	return res
}

func RegisterPage(c *RequestContext) ResponseData {
	if c.CurrentUser != nil {
		return c.Redirect(urls.BuildProfile(), http.StatusSeeOther)
	}

	var res ResponseData
	res.MustWriteTemplate("register.html", authPageData(c, "Register", urls.BuildRegister()), c.Perf)
	return res
}

func Register(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.RedirectWithNotice(urls.BuildRegister(), "failure", imgdata.ErrMissingCredentials.Error())
	}

	user, err := imgdata.CreateUser(c, c.Conn, form.Get("username"), form.Get("password"), c.GetIP())
	if err != nil {
		return c.handleDataError(err, urls.BuildRegister(), "failed to register user")
	}

	c.Logger.Info().Int("userId", user.ID).Str("username", user.Username).Msg("new user registered")

	res := c.Redirect(urls.BuildProfile(), http.StatusSeeOther)
	if err := loginUser(c, user, &res); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	return res
}

func Logout(c *RequestContext) ResponseData {
	res := c.Redirect(urls.BuildLogin(), http.StatusSeeOther)
	logoutUser(c, &res)
	return res
}

type ProfilePageData struct {
	templates.BaseData
	ImagesUrl string
}

func Profile(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("profile.html", ProfilePageData{
		BaseData:  getBaseData(c, c.CurrentUser.Username),
		ImagesUrl: urls.BuildImages(),
	}, c.Perf)
	return res
}

func loginUser(c *RequestContext, user *models.User, responseData *ResponseData) error {
	session, err := auth.CreateSession(c, c.Conn, user.ID)
	if err != nil {
		return oops.New(err, "failed to create session")
	}

	cookie, err := auth.NewSessionCookie(session)
	if err != nil {
		return oops.New(err, "failed to sign session cookie")
	}
	responseData.SetCookie(cookie)
	return nil
}

// Deletes the session row, if there is one, and always clears the cookie.
func logoutUser(c *RequestContext, res *ResponseData) {
	if sessionID, err := auth.SessionIDFromRequest(c.Req); err == nil {
		// clear the session from the db immediately, no expiration
		if err := auth.DeleteSession(c, c.Conn, sessionID); err != nil {
			c.Logger.Error().Err(err).Msg("failed to delete session on logout")
		}
	}

	res.SetCookie(auth.DeleteSessionCookie())
}
