package models

import "time"

type Session struct {
	ID        string    `db:"id"`
	UserID    int       `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CSRFToken string    `db:"csrf_token"`

	// Images whose hidden location this session has unlocked.
	UnlockedImageIDs []int `db:"unlocked_image_ids"`
}

func (s *Session) HasUnlocked(imageID int) bool {
	for _, id := range s.UnlockedImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}
