package integrationtests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"vision-chat/internal/auth"
	"vision-chat/internal/chat"
	"vision-chat/internal/history"
	"vision-chat/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresUserStore(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	authenticator := auth.NewAuthenticator(auth.NewDBUserStore(db), auth.SHA256Hasher{})

	require.NoError(t, authenticator.Register(ctx, "alice", "password"))
	assert.ErrorIs(t, authenticator.Register(ctx, "alice", "other"), auth.ErrUserExists)

	assert.NoError(t, authenticator.Login(ctx, "alice", "password"))
	assert.ErrorIs(t, authenticator.Login(ctx, "alice", "other"), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, authenticator.Login(ctx, "bob", "password"), auth.ErrInvalidCredentials)

	hash, ok, err := auth.NewDBUserStore(db).Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, auth.HashPassword("password"), hash)
}

func TestPostgresHistoryStore(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()
	store := history.NewDBStore(db)

	entries, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)

	saved := []history.Entry{
		{User: "hello", Bot: "Hello! How can I assist you today?"},
		{User: "Uploaded image", Bot: "I see a goldfish! Confidence: 0.93", Image: "uploads/fish.png"},
	}
	require.NoError(t, store.Save(ctx, "alice", saved))
	require.NoError(t, store.Save(ctx, "bob", saved[:1]))

	entries, err = store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, saved, entries)

	require.NoError(t, store.Save(ctx, "alice", saved[1:]))
	entries, err = store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, saved[1:], entries)

	entries, err = store.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, saved[:1], entries)
}

func TestPostgresChatConcurrentTurns(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	uploads, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	service := chat.NewService(history.NewDBStore(db), nil, uploads, chat.ServiceConfig{})

	const users, turns = 3, 10
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		for i := 0; i < turns; i++ {
			wg.Add(1)
			go func(username string) {
				defer wg.Done()
				_, err := service.Post(ctx, username, "hello", nil)
				assert.NoError(t, err)
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		entries, err := service.History(ctx, fmt.Sprintf("user-%d", u))
		require.NoError(t, err)
		assert.Len(t, entries, turns)
	}
}
