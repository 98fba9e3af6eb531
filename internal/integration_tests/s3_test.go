package integrationtests

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vision-chat/cmd"
	"vision-chat/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelBucket = "models"

func setupS3Provider(t *testing.T, ctx context.Context) (*storage.S3Provider, *storage.S3ProviderConfig) {
	t.Helper()

	cfg := &storage.S3ProviderConfig{
		S3EndpointURL:     setupMinioContainer(t, ctx),
		S3AccessKeyID:     minioUsername,
		S3SecretAccessKey: minioPassword,
		S3Region:          "us-east-1",
	}

	provider, err := storage.NewS3Provider(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, provider.CreateBucket(ctx, modelBucket))
	// creating an existing bucket is not an error
	require.NoError(t, provider.CreateBucket(ctx, modelBucket))

	return provider, cfg
}

func TestS3Provider_Objects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider, _ := setupS3Provider(t, ctx)

	require.NoError(t, provider.PutObject(ctx, modelBucket, "resnet/labels.json", strings.NewReader(`["tench"]`)))

	data, err := provider.GetObject(ctx, modelBucket, "resnet/labels.json")
	require.NoError(t, err)
	assert.Equal(t, `["tench"]`, string(data))

	stream, err := provider.GetObjectStream(ctx, modelBucket, "resnet/labels.json")
	require.NoError(t, err)
	streamed, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, data, streamed)

	objects, err := provider.ListObjects(ctx, modelBucket, "resnet/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "resnet/labels.json", objects[0].Name)
	assert.Equal(t, int64(len(data)), objects[0].Size)

	require.NoError(t, provider.DeleteObject(ctx, modelBucket, "resnet/labels.json"))
	objects, err = provider.ListObjects(ctx, modelBucket, "resnet/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestFetchModel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider, cfg := setupS3Provider(t, ctx)

	files := map[string]string{
		"resnet50/resnet50.onnx":               "onnx-bytes",
		"resnet50/imagenet-simple-labels.json": `["tench", "goldfish"]`,
		"resnet50/extra/notes.txt":             "notes",
		"other/ignored.txt":                    "ignored",
	}
	for key, content := range files {
		require.NoError(t, provider.PutObject(ctx, modelBucket, key, strings.NewReader(content)))
	}

	dest := t.TempDir()
	require.NoError(t, cmd.FetchModel(ctx, cfg, modelBucket, "resnet50", dest))

	for key, content := range files {
		if !strings.HasPrefix(key, "resnet50/") {
			continue
		}
		rel := strings.TrimPrefix(key, "resnet50/")
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
	assert.NoFileExists(t, filepath.Join(dest, "ignored.txt"))
	assert.NoDirExists(t, filepath.Join(dest, "other"))

	assert.Error(t, cmd.FetchModel(ctx, cfg, modelBucket, "missing", t.TempDir()))
}
