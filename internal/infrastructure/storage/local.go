package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	uploadsDir    = "uploads"
	processedDir  = "processed"
	retrainingDir = "retraining"
	modelsDir     = "models"

	// RetrainDatasetFilename is the fixed name of the dataset rebuilt from feedback
	RetrainDatasetFilename = "feedback_retrain.csv"
)

// ErrFileExists is returned when a write would replace an existing artifact
var ErrFileExists = errors.New("file already exists")

// LocalStorage manages uploads, retraining datasets and model files under one
// base directory
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// LocalStorageConfig configures local storage
type LocalStorageConfig struct {
	BasePath string // Base directory (e.g., "./data")
}

// FileMetadata contains information about stored files
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	CreatedAt    time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	for _, dir := range []string{uploadsDir, processedDir, retrainingDir, modelsDir} {
		if err := os.MkdirAll(filepath.Join(cfg.BasePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// BasePath returns the storage root
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// SaveUpload saves an uploaded file and returns metadata including its sha256
func (s *LocalStorage) SaveUpload(ctx context.Context, fileID string, filename string, reader io.Reader) (*FileMetadata, error) {
	uploadDir := filepath.Join(s.basePath, uploadsDir, fileID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(uploadDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(destFile, hash), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	fileHash := hex.EncodeToString(hash.Sum(nil))

	s.logger.Info("file uploaded successfully",
		slog.String("file_id", fileID),
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", fileHash))

	return &FileMetadata{
		ID:           fileID,
		OriginalName: safeName,
		StoredPath:   destPath,
		Size:         size,
		Hash:         fileHash,
		CreatedAt:    time.Now(),
	}, nil
}

// RemoveUpload deletes an upload directory; used to roll back a duplicate upload
func (s *LocalStorage) RemoveUpload(fileID string) error {
	if err := os.RemoveAll(filepath.Join(s.basePath, uploadsDir, fileID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload directory: %w", err)
	}
	return nil
}

// SaveProcessedFile saves a derived file (cleaned dataset, exports)
func (s *LocalStorage) SaveProcessedFile(ctx context.Context, datasetID string, fileType string, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.basePath, processedDir, datasetID, fileType)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}

	filePath := filepath.Join(dir, filepath.Base(filename))
	if err := writeAtomic(filePath, data); err != nil {
		return "", fmt.Errorf("failed to write processed file: %w", err)
	}

	s.logger.Info("processed file saved",
		slog.String("dataset_id", datasetID),
		slog.String("type", fileType),
		slog.String("filename", filename),
		slog.Int("size", len(data)))

	return filePath, nil
}

// RetrainDatasetPath returns the fixed location of the feedback dataset
func (s *LocalStorage) RetrainDatasetPath() string {
	return filepath.Join(s.basePath, retrainingDir, RetrainDatasetFilename)
}

// WriteRetrainDataset replaces the feedback dataset; readers never observe a
// partially written file
func (s *LocalStorage) WriteRetrainDataset(ctx context.Context, data []byte) (string, error) {
	path := s.RetrainDatasetPath()
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write retraining dataset: %w", err)
	}

	s.logger.Debug("retraining dataset written",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return path, nil
}

// ModelPath returns the artifact location for a model name and version
func (s *LocalStorage) ModelPath(name string, version int64) string {
	return filepath.Join(s.basePath, modelsDir, fmt.Sprintf("%s_v%d.json", name, version))
}

// SaveModel writes a serialized model. It never overwrites: if the target
// already exists ErrFileExists is returned.
func (s *LocalStorage) SaveModel(ctx context.Context, name string, version int64, data []byte) (string, error) {
	path := s.ModelPath(name, version)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return "", fmt.Errorf("failed to create model file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write model file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close model file: %w", err)
	}

	s.logger.Info("model file saved",
		slog.String("name", name),
		slog.Int64("version", version),
		slog.String("path", path))

	return path, nil
}

// ReadModel reads a serialized model from disk
func (s *LocalStorage) ReadModel(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return data, nil
}

// RemoveFile deletes a file, ignoring a missing one
func (s *LocalStorage) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeAtomic writes data to a sibling temp file and renames it into place
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
