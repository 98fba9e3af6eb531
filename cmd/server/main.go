package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vision-chat/cmd"
	"vision-chat/internal/auth"
	"vision-chat/internal/chat"
	"vision-chat/internal/session"
	"vision-chat/internal/storage"
	"vision-chat/internal/vision"
	"vision-chat/internal/web"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	Port           int    `env:"PORT" envDefault:"5000"`
	DataDir        string `env:"DATA_DIR" envDefault:"."`
	StaticDir      string `env:"STATIC_DIR" envDefault:"static"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	DatabaseURL    string `env:"DATABASE_URL"`

	SessionSecret  string `env:"SESSION_SECRET,required,notEmpty"`
	SecureCookies  bool   `env:"SECURE_COOKIES" envDefault:"false"`
	PasswordHasher string `env:"PASSWORD_HASHER" envDefault:"sha256"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	ModelType           string  `env:"MODEL_TYPE" envDefault:"onnx_resnet50"`
	ModelPath           string  `env:"MODEL_PATH"`
	LabelsPath          string  `env:"LABELS_PATH" envDefault:"imagenet-simple-labels.json"`
	OnnxRuntimeDylib    string  `env:"ONNX_RUNTIME_DYLIB"`
	ConfidenceThreshold float32 `env:"CONFIDENCE_THRESHOLD" envDefault:"0.5"`
	MaxUploadBytes      int64   `env:"MAX_UPLOAD_BYTES" envDefault:"16777216"`

	ModelS3Bucket     string `env:"MODEL_S3_BUCKET"`
	ModelS3Prefix     string `env:"MODEL_S3_PREFIX"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func createServer(cfg Config, classifier vision.Classifier) *http.Server {
	users, histories, err := cmd.CreateStores(cfg.StorageBackend, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error creating stores: %v", err)
	}

	hasher, err := auth.NewHasher(cfg.PasswordHasher)
	if err != nil {
		log.Fatalf("error creating password hasher: %v", err)
	}

	uploads, err := storage.NewLocalProvider(cfg.StaticDir)
	if err != nil {
		log.Fatalf("error creating upload storage: %v", err)
	}

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SecureCookies)
	if err != nil {
		log.Fatalf("error creating session manager: %v", err)
	}

	chatService := chat.NewService(histories, classifier, uploads, chat.ServiceConfig{
		UploadBucket:        "uploads",
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	})

	server := web.NewServer(auth.NewAuthenticator(users, hasher), chatService, sessions, cfg.StaticDir, cfg.MaxUploadBytes)

	r := chi.NewRouter()

	r.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	server.AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

// corsMiddleware allows credentialed cross-origin requests only from the
// listed origins. With no origins the pages are same-origin only.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func resolveModelPaths(cfg *Config) {
	if cfg.ModelS3Bucket == "" {
		return
	}

	modelDir := filepath.Join(cfg.DataDir, "models")
	if err := cmd.FetchModel(context.Background(), &storage.S3ProviderConfig{
		S3EndpointURL:     cfg.S3EndpointURL,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Region:          cfg.S3Region,
	}, cfg.ModelS3Bucket, cfg.ModelS3Prefix, modelDir); err != nil {
		log.Fatalf("failed to fetch model: %v", err)
	}

	// Relative paths refer to files inside the downloaded model directory.
	if cfg.ModelPath != "" && !filepath.IsAbs(cfg.ModelPath) {
		cfg.ModelPath = filepath.Join(modelDir, cfg.ModelPath)
	}
	if !filepath.IsAbs(cfg.LabelsPath) {
		cfg.LabelsPath = filepath.Join(modelDir, cfg.LabelsPath)
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		log.Fatalf("error creating data directory: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.DataDir, "server.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting server", "port", cfg.Port, "data_dir", cfg.DataDir, "static_dir", cfg.StaticDir, "storage_backend", cfg.StorageBackend, "model_type", cfg.ModelType)

	destroyOnnx := initOnnxRuntime(cfg.OnnxRuntimeDylib)
	defer destroyOnnx()

	resolveModelPaths(&cfg)

	classifier, err := cmd.LoadClassifier(cfg.ModelType, cfg.ModelPath, cfg.LabelsPath)
	if err != nil {
		log.Fatalf("could not load classifier: %v", err)
	}
	if classifier != nil {
		defer classifier.Release()
	}

	server := createServer(cfg, classifier)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("could not listen on %d: %v", cfg.Port, err)
	}

	slog.Info("server stopped")
}
