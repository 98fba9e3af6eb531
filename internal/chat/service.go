package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"vision-chat/internal/history"
	"vision-chat/internal/responder"
	"vision-chat/internal/storage"
	"vision-chat/internal/vision"

	"github.com/google/uuid"
)

const UploadedImageText = "Uploaded image"

var ErrNoClassifier = errors.New("image classification is not available")

type Upload struct {
	Filename string
	Data     io.Reader
}

type ServiceConfig struct {
	// UploadBucket is the directory under the static root that receives uploads.
	UploadBucket        string
	ConfidenceThreshold float32
}

type Service struct {
	history    history.Store
	classifier vision.Classifier
	uploads    storage.Provider
	cfg        ServiceConfig
	locks      *userLocks
}

func NewService(store history.Store, classifier vision.Classifier, uploads storage.Provider, cfg ServiceConfig) *Service {
	if cfg.UploadBucket == "" {
		cfg.UploadBucket = "uploads"
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = vision.DefaultConfidenceThreshold
	}
	return &Service{
		history:    store,
		classifier: classifier,
		uploads:    uploads,
		cfg:        cfg,
		locks:      newUserLocks(),
	}
}

func (s *Service) History(ctx context.Context, username string) ([]history.Entry, error) {
	return s.history.Load(ctx, username)
}

// Post records one chat turn for the text message (if any) and one for the
// uploaded image (if any), then saves the transcript.
func (s *Service) Post(ctx context.Context, username, text string, upload *Upload) ([]history.Entry, error) {
	release := s.locks.acquire(username)
	defer release()

	entries, err := s.history.Load(ctx, username)
	if err != nil {
		return nil, err
	}

	if text = strings.TrimSpace(text); text != "" {
		reply := responder.Respond(text)
		if reply.Action == responder.ClearHistory {
			slog.Info("clearing chat history", "username", username)
			entries = []history.Entry{}
		}
		entries = append(entries, history.Entry{User: text, Bot: reply.Text})
	}

	if upload != nil && upload.Filename != "" {
		entries = append(entries, s.classifyUpload(ctx, upload))
	}

	if err := s.history.Save(ctx, username, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Service) classifyUpload(ctx context.Context, upload *Upload) history.Entry {
	key := uuid.New().String() + "_" + uploadBasename(upload.Filename)

	pred, err := s.storeAndClassify(ctx, key, upload.Data)
	if err != nil {
		slog.Error("error processing uploaded image", "filename", upload.Filename, "error", err)
		return history.Entry{User: UploadedImageText, Bot: vision.DescribeError(err)}
	}

	slog.Info("classified uploaded image", "filename", upload.Filename, "label", pred.Label, "probability", pred.Probability)

	return history.Entry{
		User:  UploadedImageText,
		Bot:   vision.Describe(pred, s.cfg.ConfidenceThreshold),
		Image: path.Join(s.cfg.UploadBucket, key),
	}
}

func (s *Service) storeAndClassify(ctx context.Context, key string, data io.Reader) (vision.Prediction, error) {
	if err := s.uploads.PutObject(ctx, s.cfg.UploadBucket, key, data); err != nil {
		return vision.Prediction{}, err
	}
	defer func() {
		if err := s.uploads.DeleteObject(context.Background(), s.cfg.UploadBucket, key); err != nil {
			slog.Error("error removing uploaded image", "key", key, "error", err)
		}
	}()

	if s.classifier == nil {
		return vision.Prediction{}, ErrNoClassifier
	}

	stream, err := s.uploads.GetObjectStream(ctx, s.cfg.UploadBucket, key)
	if err != nil {
		return vision.Prediction{}, err
	}
	defer stream.Close()

	pred, err := vision.ClassifyReader(ctx, s.classifier, stream)
	if err != nil {
		return vision.Prediction{}, fmt.Errorf("error classifying image: %w", err)
	}
	return pred, nil
}

func uploadBasename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
