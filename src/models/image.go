package models

import (
	"strings"
	"time"
)

var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type Image struct {
	ID     int `db:"id"`
	UserID int `db:"user_id"`

	StoredFilename   string `db:"stored_filename"`
	OriginalFilename string `db:"original_filename"`
	Width            int    `db:"width"`
	Height           int    `db:"height"`

	Description *string `db:"description"`

	Location             *string `db:"location"`
	LocationIsHidden     bool    `db:"location_is_hidden"`
	LocationPasswordHash *string `db:"location_password_hash"`

	CreatedAt time.Time `db:"created_at"`
}

func (img *Image) OwnedBy(userID int) bool {
	return img.UserID == userID
}

func (img *Image) HasPassword() bool {
	return img.LocationPasswordHash != nil && *img.LocationPasswordHash != ""
}

func (img *Image) ContentType() string {
	ext := strings.ToLower(img.StoredFilename[strings.LastIndexByte(img.StoredFilename, '.')+1:])
	switch ext {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
