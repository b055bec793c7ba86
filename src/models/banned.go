package models

type Banned struct {
	ID int    `db:"id"`
	IP string `db:"ip"`
}
