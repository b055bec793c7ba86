package templates

import (
	"html/template"

	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/parsing"
	"github.com/snapwall/snapwall/src/urls"
)

func UserToTemplate(u *models.User) *User {
	if u == nil {
		return nil
	}

	return &User{
		ID:       u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		LastIP:   u.LastIPString(),
	}
}

func SessionToTemplate(s *models.Session) *Session {
	if s == nil {
		return nil
	}
	return &Session{CSRFToken: s.CSRFToken}
}

func ImageToTemplate(img *models.Image) Image {
	result := Image{
		ID:               img.ID,
		OriginalFilename: img.OriginalFilename,
		Width:            img.Width,
		Height:           img.Height,
		CreatedAt:        img.CreatedAt,
		Alt:              img.OriginalFilename,

		LocationHidden:  img.LocationIsHidden,
		HasLocationPass: img.HasPassword(),

		FileUrl:   urls.BuildImageFile(img.ID),
		EditUrl:   urls.BuildImageEdit(img.ID),
		DeleteUrl: urls.BuildImageDelete(img.ID),
		LikeUrl:   urls.BuildImageLike(img.ID),
		UnlikeUrl: urls.BuildImageUnlike(img.ID),
		UnlockUrl: urls.BuildImageUnlock(img.ID),
	}

	if img.Description != nil {
		result.Description = *img.Description
		result.DescriptionHTML = template.HTML(parsing.RenderDescription(*img.Description))
		result.Alt = parsing.PlaintextDescription(*img.Description, 120)
	}
	if img.Location != nil {
		result.HasLocation = true
		result.Location = *img.Location
	}

	return result
}

// Converts a listing entry, hiding the location unless the viewer may see it.
func ImageListingToTemplate(l imgdata.ImageListing) Image {
	result := ImageToTemplate(l.Image)
	result.OwnerUsername = l.OwnerUsername
	result.IsOwner = l.OwnedByViewer
	result.LikesCount = l.LikesCount
	result.IsLikedByUser = l.LikedByViewer

	if l.VisibleLocation != nil {
		result.Location = *l.VisibleLocation
	} else {
		result.Location = ""
		result.LocationLocked = result.HasLocation
	}

	return result
}

func AdminUserToTemplate(u imgdata.UserWithBan) AdminUser {
	return AdminUser{
		User:     *UserToTemplate(&u.User),
		IsBanned: u.IsBanned,
		BanUrl:   urls.BuildAdminBan(u.ID),
		UnbanUrl: urls.BuildAdminUnban(u.ID),
	}
}
