package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"

	"vision-chat/internal/auth"
	"vision-chat/internal/database"
	"vision-chat/internal/history"
	"vision-chat/internal/storage"
	"vision-chat/internal/vision"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	if err := godotenv.Load(configPath); err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

const (
	FileBackend     = "file"
	DatabaseBackend = "database"
)

// CreateStores builds the user and history stores for the configured backend.
// The file backend keeps users.json and chat_history_<user>.json in dataDir.
func CreateStores(backend, dataDir, databaseURL string) (auth.UserStore, history.Store, error) {
	switch backend {
	case "", FileBackend:
		users, err := auth.NewFileUserStore(filepath.Join(dataDir, "users.json"))
		if err != nil {
			return nil, nil, err
		}
		histories, err := history.NewFileStore(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return users, histories, nil

	case DatabaseBackend:
		if databaseURL == "" {
			databaseURL = "sqlite://" + filepath.Join(dataDir, "vision-chat.db")
		}
		db, err := database.NewDatabase(databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewDBUserStore(db), history.NewDBStore(db), nil

	default:
		return nil, nil, fmt.Errorf("invalid storage backend '%s', must be '%s' or '%s'", backend, FileBackend, DatabaseBackend)
	}
}

// FetchModel copies the model artefacts stored under bucket/prefix into dest.
func FetchModel(ctx context.Context, cfg *storage.S3ProviderConfig, bucket, prefix, dest string) error {
	provider, err := storage.NewS3Provider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error creating s3 provider: %w", err)
	}

	slog.Info("downloading model artefacts", "bucket", bucket, "prefix", prefix, "dest", dest)
	if err := storage.DownloadDir(ctx, provider, bucket, prefix, dest); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}
	return nil
}

// LoadClassifier reads the label list and loads the model. An empty modelPath
// disables classification and returns a nil classifier.
func LoadClassifier(modelType, modelPath, labelsPath string) (vision.Classifier, error) {
	if modelPath == "" {
		slog.Warn("no model path configured, image classification is disabled")
		return nil, nil
	}

	labels, err := vision.LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	classifier, err := vision.LoadClassifier(vision.ModelType(modelType), modelPath, labels)
	if err != nil {
		return nil, fmt.Errorf("error loading %s model from %s: %w", modelType, modelPath, err)
	}

	slog.Info("loaded classifier", "model_type", modelType, "model_path", modelPath, "labels", len(labels))
	return classifier, nil
}
