package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Folder names under each case prefix
const (
	FolderOriginal      = "original"
	FolderGenerated     = "generated"
	FolderJustificantes = "justificantes"
)

// ErrNotFound is returned when the requested object does not exist
var ErrNotFound = errors.New("object not found")

// Storage interface for case document blobs
type Storage interface {
	// Put stores an object under the given key
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves the full object by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Presign returns a temporary download URL for the key. filename, when
	// non-empty, is sent as the attachment name.
	Presign(ctx context.Context, key string, expiry time.Duration, filename string) (string, error)

	// Delete removes an object by key
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeB2    StorageType = "b2"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type      StorageType
	LocalPath string // For local storage
	Bucket    string // For B2 storage
	Endpoint  string // B2 S3-compatible endpoint
	Region    string
	KeyID     string
	AppKey    string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeB2:
		return NewB2Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv() (Storage, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local"
	}

	switch StorageType(storageType) {
	case StorageTypeLocal:
		localPath := os.Getenv("STORAGE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./storage/files"
		}
		return NewLocalStorage(localPath)

	case StorageTypeB2:
		cfg := StorageConfig{
			Type:     StorageTypeB2,
			Bucket:   os.Getenv("B2_BUCKET"),
			Endpoint: os.Getenv("B2_ENDPOINT"),
			Region:   os.Getenv("B2_REGION"),
			KeyID:    os.Getenv("B2_KEY_ID"),
			AppKey:   os.Getenv("B2_APPLICATION_KEY"),
		}
		if cfg.Region == "" {
			cfg.Region = "us-east-005"
		}
		if cfg.Bucket == "" || cfg.Endpoint == "" {
			return nil, errors.New("B2_BUCKET and B2_ENDPOINT environment variables are required for B2 storage")
		}
		return NewB2Storage(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}

// ObjectKey builds the canonical key for a case object:
// cases/{caseID}/{folder}/{random hex}{ext}
func ObjectKey(caseID uuid.UUID, folder, ext string) string {
	name := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("cases/%s/%s/%s%s", caseID, folder, name, ext)
}

// GuessExt derives a file extension from the upload filename first and the
// declared MIME type second. Unknown inputs yield an empty extension.
func GuessExt(filename, mime string) string {
	fn := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(fn, ".pdf"):
		return ".pdf"
	case strings.HasSuffix(fn, ".png"):
		return ".png"
	case strings.HasSuffix(fn, ".jpg"), strings.HasSuffix(fn, ".jpeg"):
		return ".jpg"
	case strings.HasSuffix(fn, ".webp"):
		return ".webp"
	case strings.HasSuffix(fn, ".docx"):
		return ".docx"
	}
	switch mime {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpg", "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	}
	return ""
}
