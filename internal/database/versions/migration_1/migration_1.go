package migration_1

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ChatEntry struct {
	CreatedAt time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&ChatEntry{}, "CreatedAt"); err != nil {
		return fmt.Errorf("error adding CreatedAt column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&ChatEntry{}, "CreatedAt"); err != nil {
		return fmt.Errorf("error dropping CreatedAt column: %w", err)
	}
	return nil
}
