package models

import (
	"time"
)

// User represents the users table in the database.
// Balance is kept in the smallest currency unit.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}
