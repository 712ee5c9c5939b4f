package models

import "time"

// User is the directory entry kept for everyone who has signed in.
type User struct {
	Email       string
	Name        string
	Picture     string
	CreatedAt   time.Time
	LastLoginAt time.Time
}
