package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vision-chat/internal/database"

	"gorm.io/gorm"
)

type DBStore struct {
	db *gorm.DB
	// SQLite only supports one writer at a time.
	mu sync.Mutex
}

var _ Store = (*DBStore)(nil)

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Load(ctx context.Context, username string) ([]Entry, error) {
	var rows []database.ChatEntry
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		slog.Error("error loading chat history", "username", username, "error", err)
		return nil, fmt.Errorf("error loading chat history: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{User: row.UserText, Bot: row.BotText, Image: row.Image})
	}
	return entries, nil
}

func (s *DBStore) Save(ctx context.Context, username string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&database.ChatEntry{}, "username = ?", username).Error; err != nil {
			return fmt.Errorf("error clearing chat history: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		rows := make([]database.ChatEntry, 0, len(entries))
		for i, e := range entries {
			rows = append(rows, database.ChatEntry{
				Username:  username,
				Position:  i,
				UserText:  e.User,
				BotText:   e.Bot,
				Image:     e.Image,
				CreatedAt: now,
			})
		}
		if err := txn.Create(&rows).Error; err != nil {
			return fmt.Errorf("error saving chat history: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("error saving chat history", "username", username, "error", err)
		return err
	}
	return nil
}
