package website

import (
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

func getBaseData(c *RequestContext, title string) templates.BaseData {
	var templateUser *templates.User
	var templateSession *templates.Session
	if c.CurrentUser != nil {
		templateUser = templates.UserToTemplate(c.CurrentUser)
		templateSession = templates.SessionToTemplate(c.CurrentSession)
	}

	return templates.BaseData{
		Title:      title,
		Notices:    getNoticesFromCookie(c),
		CurrentUrl: c.CurrentUrl(),

		User:    templateUser,
		Session: templateSession,

		Header: templates.Header{
			HomepageUrl: urls.BuildHomepage(),
			ImagesUrl:   urls.BuildImages(),
			ProfileUrl:  urls.BuildProfile(),
			AdminUrl:    urls.BuildAdmin(""),
			LoginUrl:    urls.BuildLogin(),
			RegisterUrl: urls.BuildRegister(),
			LogoutUrl:   urls.BuildLogout(),
		},
	}
}
