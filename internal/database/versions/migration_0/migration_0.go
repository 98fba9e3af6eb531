package migration_0

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

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
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &ChatEntry{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
