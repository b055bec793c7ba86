package models

type Like struct {
	ID      int `db:"id"`
	UserID  int `db:"user_id"`
	ImageID int `db:"image_id"`
}
