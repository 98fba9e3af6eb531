package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

type Object struct {
	Name string
	Size int64
}

type Provider interface {
	CreateBucket(ctx context.Context, bucket string) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	DownloadObject(ctx context.Context, bucket, key, filename string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	DeleteObject(ctx context.Context, bucket, key string) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// DownloadDir copies every object under prefix into dest, keeping the key
// layout relative to prefix.
func DownloadDir(ctx context.Context, p Provider, bucket, prefix, dest string) error {
	objects, err := p.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	if len(objects) == 0 {
		return fmt.Errorf("no objects found under %s/%s", bucket, prefix)
	}

	for _, obj := range objects {
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Name, prefix), "/")
		if rel == "" {
			rel = filepath.Base(obj.Name)
		}
		local := filepath.Join(dest, filepath.FromSlash(rel))
		if err := p.DownloadObject(ctx, bucket, obj.Name, local); err != nil {
			return err
		}
		slog.Info("downloaded object", "bucket", bucket, "key", obj.Name, "dest", local)
	}

	return nil
}
