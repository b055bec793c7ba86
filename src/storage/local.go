package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/snapwall/snapwall/src/oops"
)

type Local struct {
	Root string
}

var _ Store = (*Local)(nil)

func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, oops.New(nil, "local storage needs a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, oops.New(err, "failed to create upload root %s", root)
	}
	return &Local{Root: root}, nil
}

func (l *Local) path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.Root, filepath.FromSlash(name)), nil
}

// Writes go to a temporary file first, so readers never see a partial object.
func (l *Local) Put(ctx context.Context, name string, content []byte, contentType string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return oops.New(err, "failed to create directory for %s", name)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return oops.New(err, "failed to create temporary file for %s", name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return oops.New(err, "failed to write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return oops.New(err, "failed to write %s", name)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return oops.New(err, "failed to move %s into place", name)
	}
	return nil
}

func (l *Local) Delete(ctx context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.New(err, "failed to delete %s", name)
	}
	return nil
}

func (l *Local) Fetch(ctx context.Context, name string) (*Object, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to open %s", name)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, oops.New(err, "failed to stat %s", name)
	}
	return &Object{Content: f, ModTime: info.ModTime()}, nil
}
