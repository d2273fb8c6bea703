package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edu-ai-assistant/internal/config"
	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
)

// ErrFileNotFound is returned when no file is bound to a conversation id.
var ErrFileNotFound = errors.New("file not found")

// FileStore binds at most one uploaded PDF to each conversation id. Bytes
// live on disk under the storage dir keyed by chat id; the chat_id to
// filename binding is kept in Mongo. Saving under an existing chat id
// overwrites the previous file (last write wins).
type FileStore struct {
	uploadDir string
	tempDir   string
	files     *mongo.Collection
}

func NewFileStore(cfg *config.Config, files *mongo.Collection) (*FileStore, error) {
	baseDir := cfg.FileStorageDir
	if baseDir == "" {
		baseDir = "./storage"
	}

	uploadDir := filepath.Join(baseDir, "pdfs")
	tempDir := filepath.Join(baseDir, "temp")

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &FileStore{
		uploadDir: uploadDir,
		tempDir:   tempDir,
		files:     files,
	}, nil
}

// Save stores the uploaded content for a conversation id, replacing any
// previous file bound to it.
func (s *FileStore) Save(ctx context.Context, chatID, filename string, r io.Reader) (*models.StoredFile, error) {
	if err := validateChatID(chatID); err != nil {
		return nil, err
	}

	// Write to a temp file first so a failed upload never clobbers the
	// currently bound file.
	tempPath := filepath.Join(s.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	size, err := io.Copy(tempFile, r)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	if size == 0 {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file is empty")
	}

	finalPath := s.pathFor(chatID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	file := &models.StoredFile{
		ChatID:     chatID,
		Filename:   filename,
		Path:       finalPath,
		Size:       size,
		UploadedAt: time.Now(),
	}

	_, err = s.files.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": file},
		options.Update().SetUpsert(true))
	if err != nil {
		// The bytes are on disk but the binding write failed; remove the
		// blob so a later Get cannot see a half-saved upload.
		if rmErr := os.Remove(finalPath); rmErr != nil {
			logger.Warn("Failed to remove orphaned upload", "path", finalPath, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	return file, nil
}

// Get returns the file bound to a conversation id, or ErrFileNotFound.
func (s *FileStore) Get(ctx context.Context, chatID string) (*models.StoredFile, error) {
	var file models.StoredFile
	err := s.files.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&file)
	if err == mongo.ErrNoDocuments {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file record: %w", err)
	}

	if _, err := os.Stat(file.Path); err != nil {
		return nil, ErrFileNotFound
	}
	return &file, nil
}

func (s *FileStore) pathFor(chatID string) string {
	return filepath.Join(s.uploadDir, chatID+".pdf")
}

// validateChatID rejects ids that could escape the storage dir, since the
// chat id is used directly as the on-disk file name.
func validateChatID(chatID string) error {
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	if len(chatID) > 128 {
		return fmt.Errorf("chat id too long")
	}
	if strings.ContainsAny(chatID, "/\\") || strings.Contains(chatID, "..") {
		return fmt.Errorf("chat id contains invalid characters")
	}
	return nil
}
