package models

type User struct {
	ID int `db:"id"`

	Username string  `db:"username"`
	Password string  `db:"password_hash"`
	LastIP   *string `db:"last_ip"`

	IsAdmin bool `db:"is_admin"`
}

func (u *User) LastIPString() string {
	if u.LastIP == nil {
		return ""
	}
	return *u.LastIP
}
