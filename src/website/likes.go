package website

import (
	"net/http"

	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/urls"
)

func ImageLike(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrImageNotFound.Error())
	}

	if err := imgdata.Like(c, c.Conn, c.CurrentUser.ID, imageID); err != nil {
		return c.handleDataError(err, urls.BuildImages(), "failed to like image")
	}
	return c.Redirect(urls.BuildImages(), http.StatusSeeOther)
}

func ImageUnlike(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrNotLiked.Error())
	}

	if err := imgdata.Unlike(c, c.Conn, c.CurrentUser.ID, imageID); err != nil {
		return c.handleDataError(err, urls.BuildImages(), "failed to unlike image")
	}
	return c.Redirect(urls.BuildImages(), http.StatusSeeOther)
}
