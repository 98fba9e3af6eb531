package cmd_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vision-chat/cmd"
	"vision-chat/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStores(t *testing.T) {
	for _, backend := range []string{cmd.FileBackend, cmd.DatabaseBackend} {
		t.Run(backend, func(t *testing.T) {
			dataDir := t.TempDir()

			users, histories, err := cmd.CreateStores(backend, dataDir, "")
			require.NoError(t, err)

			ctx := context.Background()
			require.NoError(t, users.Create(ctx, "alice", "hash"))
			hash, ok, err := users.Get(ctx, "alice")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "hash", hash)

			entries := []history.Entry{{User: "hi", Bot: "Hi! How can I help you today?"}}
			require.NoError(t, histories.Save(ctx, "alice", entries))
			loaded, err := histories.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, entries, loaded)
		})
	}

	t.Run("file layout", func(t *testing.T) {
		dataDir := t.TempDir()
		users, histories, err := cmd.CreateStores(cmd.FileBackend, dataDir, "")
		require.NoError(t, err)

		require.NoError(t, users.Create(context.Background(), "bob", "hash"))
		require.NoError(t, histories.Save(context.Background(), "bob", nil))

		assert.FileExists(t, filepath.Join(dataDir, "users.json"))
		assert.FileExists(t, filepath.Join(dataDir, "chat_history_bob.json"))
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := cmd.CreateStores("redis", t.TempDir(), "")
		assert.Error(t, err)
	})
}

func TestLoadClassifier(t *testing.T) {
	classifier, err := cmd.LoadClassifier("onnx_resnet50", "", "labels.json")
	require.NoError(t, err)
	assert.Nil(t, classifier)

	dir := t.TempDir()
	labels := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(labels, []byte(`["tench", "goldfish"]`), 0o644))

	_, err = cmd.LoadClassifier("not_a_model", filepath.Join(dir, "model.onnx"), labels)
	assert.Error(t, err)

	_, err = cmd.LoadClassifier("onnx_resnet50", filepath.Join(dir, "model.onnx"), filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
