// Package storage holds image bytes, either on the local filesystem or in an
// S3-compatible bucket. Only object names are ever stored in the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/oops"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Put(ctx context.Context, name string, content []byte, contentType string) error
	// Deleting an object that does not exist is not an error.
	Delete(ctx context.Context, name string) error
	Fetch(ctx context.Context, name string) (*Object, error)
}

// The result of Fetch. Exactly one of RedirectURL and Content is set.
type Object struct {
	RedirectURL string

	Content io.ReadSeekCloser
	ModTime time.Time
}

func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageLocal, "":
		return NewLocal(cfg.UploadRoot)
	case config.StorageS3:
		return NewS3(ctx, cfg)
	default:
		return nil, oops.New(nil, "unknown storage backend %q", cfg.Backend)
	}
}

// Generates a fresh storage key: 32 hex characters of randomness plus the
// given extension.
func NewKey(ext string) string {
	id := uuid.New()
	return fmt.Sprintf("%x%s", id[:], ext)
}

// Objects are grouped per owner, so an owner's uploads share a prefix.
func ObjectName(ownerID int, key string) string {
	return path.Join(fmt.Sprintf("u%d", ownerID), key)
}

var reObjectName = regexp.MustCompile(`^[\w\-.]+(/[\w\-.]+)*$`)

func validateName(name string) error {
	if !reObjectName.MatchString(name) {
		return oops.New(nil, "invalid object name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "." || part == ".." {
			return oops.New(nil, "invalid object name %q", name)
		}
	}
	return nil
}
