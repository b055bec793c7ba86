package templates

import (
	"html/template"
	"time"
)

type BaseData struct {
	Title      string
	Notices    []Notice
	CurrentUrl string

	User    *User
	Session *Session

	Header Header
}

func (bd *BaseData) AddImmediateNotice(class, content string) {
	bd.Notices = append(bd.Notices, Notice{
		Class:   class,
		Content: template.HTML(template.HTMLEscapeString(content)),
	})
}

type Header struct {
	HomepageUrl string
	ImagesUrl   string
	ProfileUrl  string
	AdminUrl    string
	LoginUrl    string
	RegisterUrl string
	LogoutUrl   string
}

type Notice struct {
	Content template.HTML
	Class   string
}

type User struct {
	ID       int
	Username string
	IsAdmin  bool
	LastIP   string
}

type Session struct {
	CSRFToken string
}

type Image struct {
	ID               int
	OriginalFilename string
	Width            int
	Height           int
	CreatedAt        time.Time

	Alt             string
	Description     string // raw, for editing
	DescriptionHTML template.HTML

	HasLocation     bool
	Location        string
	LocationHidden  bool
	LocationLocked  bool // hidden, and this viewer hasn't unlocked it
	HasLocationPass bool

	OwnerUsername string
	IsOwner       bool
	LikesCount    int
	IsLikedByUser bool

	FileUrl   string
	EditUrl   string
	DeleteUrl string
	LikeUrl   string
	UnlikeUrl string
	UnlockUrl string
}

type AdminUser struct {
	User
	IsBanned bool
	BanUrl   string
	UnbanUrl string
}
