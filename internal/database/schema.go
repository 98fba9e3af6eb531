package database

import "time"

type User struct {
	Username     string `gorm:"primaryKey;size:255"`
	PasswordHash string `gorm:"not null"`
	CreationTime time.Time
}

type ChatEntry struct {
	Username string `gorm:"primaryKey;size:255"`
	Position int    `gorm:"primaryKey"`

	UserText string
	BotText  string
	Image    string

	CreatedAt time.Time
}
