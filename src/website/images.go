package website

import (
	"errors"
	"io"
	"net/http"

	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

// The largest request body the upload route will read.
const maxUploadSize = 16 * 1024 * 1024

type ImagesPageData struct {
	templates.BaseData
	UploadUrl string
	Images    []templates.Image
}

func ImagesList(c *RequestContext) ResponseData {
	listings, err := imgdata.ListImages(c, c.Conn, c.CurrentUser.ID, c.CurrentSession)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to list images"))
	}

	images := make([]templates.Image, 0, len(listings))
	for _, l := range listings {
		images = append(images, templates.ImageListingToTemplate(l))
	}

	var res ResponseData
	res.MustWriteTemplate("images.html", ImagesPageData{
		BaseData:  getBaseData(c, "Images"),
		UploadUrl: urls.BuildImageUpload(),
		Images:    images,
	}, c.Perf)
	return res
}

func ImageUpload(c *RequestContext) ResponseData {
	in := imgdata.UploadInput{
		Description:      c.Req.Form.Get("description"),
		HideLocation:     c.Req.Form.Get("hide_location") != "",
		Location:         c.Req.Form.Get("location"),
		LocationPassword: c.Req.Form.Get("location_password"),
	}

	file, header, err := c.Req.FormFile("file")
	if err == nil {
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read uploaded file"))
		}
		in.Filename = header.Filename
		in.Content = content
	}

	img, err := imgdata.CreateImage(c, c.Conn, c.Storage, c.CurrentUser.ID, in)
	if err != nil {
		return c.handleDataError(err, urls.BuildImages(), "failed to upload image")
	}

	c.Logger.Info().Int("imageId", img.ID).Str("filename", img.OriginalFilename).Msg("image uploaded")
	return c.RedirectWithNotice(urls.BuildImages(), "success", "Uploaded")
}

func ImageFile(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrAccessDenied.Error())
	}

	img, err := imgdata.FetchImage(c, c.Conn, imageID)
	if err != nil {
		return c.handleDataError(accessDeniedIfMissing(err), urls.BuildImages(), "failed to fetch image")
	}

	b := c.Perf.StartBlock("STORAGE", "Fetch image")
	obj, err := c.Storage.Fetch(c, storage.ObjectName(img.UserID, img.StoredFilename))
	b.End()
	if errors.Is(err, storage.ErrNotFound) {
		c.Logger.Warn().Int("imageId", img.ID).Msg("image row has no stored object")
		return FourOhFour(c)
	} else if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch image object"))
	}

	if obj.RedirectURL != "" {
		return c.Redirect(obj.RedirectURL, http.StatusFound)
	}
	defer obj.Content.Close()

	var res ResponseData
	res.Header().Set("Content-Type", img.ContentType())
	res.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(&res, c.Req, img.StoredFilename, obj.ModTime, obj.Content)
	return res
}

type EditPageData struct {
	templates.BaseData
	Image     templates.Image
	ImagesUrl string
}

func ImageEdit(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrAccessDenied.Error())
	}

	img, err := imgdata.FetchOwnedImage(c, c.Conn, imageID, c.CurrentUser.ID)
	if err != nil {
		return c.handleDataError(accessDeniedIfMissing(err), urls.BuildImages(), "failed to fetch image for editing")
	}

	var res ResponseData
	res.MustWriteTemplate("edit.html", EditPageData{
		BaseData:  getBaseData(c, "Edit image"),
		Image:     templates.ImageToTemplate(img),
		ImagesUrl: urls.BuildImages(),
	}, c.Perf)
	return res
}

func ImageEditSubmit(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrAccessDenied.Error())
	}

	err := imgdata.UpdateImage(c, c.Conn, imageID, c.CurrentUser.ID, imgdata.EditInput{
		Description:      c.Req.Form.Get("description"),
		HideLocation:     c.Req.Form.Get("hide_location") != "",
		Location:         c.Req.Form.Get("location"),
		LocationPassword: c.Req.Form.Get("location_password"),
	})
	if errors.Is(err, imgdata.ErrAccessDenied) {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", err.Error())
	} else if err != nil {
		return c.handleDataError(err, urls.BuildImageEdit(imageID), "failed to update image")
	}

	return c.RedirectWithNotice(urls.BuildImages(), "success", "Image updated")
}

func ImageDelete(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrAccessDenied.Error())
	}

	err := imgdata.DeleteImage(c, c.Conn, c.Storage, imageID, c.CurrentUser.ID)
	if err != nil {
		return c.handleDataError(accessDeniedIfMissing(err), urls.BuildImages(), "failed to delete image")
	}

	c.Logger.Info().Int("imageId", imageID).Msg("image deleted")
	return c.RedirectWithNotice(urls.BuildImages(), "success", "Deleted")
}

func ImageUnlock(c *RequestContext) ResponseData {
	imageID, ok := c.PathParamInt("imageid")
	if !ok {
		return c.RedirectWithNotice(urls.BuildImages(), "failure", imgdata.ErrWrongPassword.Error())
	}

	err := imgdata.UnlockLocation(c, c.Conn, c.CurrentSession, imageID, c.Req.Form.Get("location_password"))
	if err != nil {
		return c.handleDataError(err, urls.BuildImages(), "failed to unlock location")
	}

	return c.RedirectWithNotice(urls.BuildImages(), "success", "Location unlocked")
}

// Missing and foreign images look the same from the outside.
func accessDeniedIfMissing(err error) error {
	if errors.Is(err, db.NotFound) {
		return imgdata.ErrAccessDenied
	}
	return err
}
