package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vision-chat/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DBUserStore struct {
	db *gorm.DB
}

var _ UserStore = (*DBUserStore)(nil)

func NewDBUserStore(db *gorm.DB) *DBUserStore {
	return &DBUserStore{db: db}
}

func (s *DBUserStore) Get(ctx context.Context, username string) (string, bool, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		slog.Error("error looking up user", "username", username, "error", err)
		return "", false, fmt.Errorf("error looking up user: %w", err)
	}
	return user.PasswordHash, true, nil
}

func (s *DBUserStore) Create(ctx context.Context, username, hash string) error {
	user := database.User{Username: username, PasswordHash: hash, CreationTime: time.Now().UTC()}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if result.Error != nil {
		slog.Error("error creating user", "username", username, "error", result.Error)
		return fmt.Errorf("error creating user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserExists
	}
	return nil
}
