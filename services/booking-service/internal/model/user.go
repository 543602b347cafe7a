package model

import "time"

// User is both booker and provider; the Provider flag decides which roles the
// account can play.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Provider     bool
	AvatarID     *string
	Avatar       *File
	CreatedAt    time.Time
}

// File is an uploaded avatar image.
type File struct {
	ID   string
	Name string
	Path string
}
