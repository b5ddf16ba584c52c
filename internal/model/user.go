// Package model defines the data structures shared across the application.
package model

import "time"

// User is a registered account. Users are never updated or deleted once
// created; the username is the only attribute and it is unique.
type User struct {
	ID        int64     `json:"id"        db:"id"`
	Username  string    `json:"username"  db:"username"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
