// Package storage saves uploaded pigeon photos to the local filesystem.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// extensions maps detected MIME types to file extensions.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// FileStore writes uploaded photos into a flat directory. File names
// carry a timestamp prefix so repeated uploads never collide.
type FileStore struct {
	dir string
}

// NewFileStore creates the uploads directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create uploads directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the uploads directory, for serving files statically.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save writes the photo to disk and returns the file name relative to
// the uploads directory.
func (fs *FileStore) Save(id string, mimeType string, data []byte) (string, error) {
	ext, ok := extensions[mimeType]
	if !ok {
		ext = ".bin"
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), id, ext)
	if err := os.WriteFile(filepath.Join(fs.dir, name), data, 0640); err != nil {
		return "", fmt.Errorf("could not save photo %s: %w", name, err)
	}
	return name, nil
}

// Remove deletes a stored photo. Missing files are not an error.
func (fs *FileStore) Remove(name string) error {
	err := os.Remove(filepath.Join(fs.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove photo %s: %w", name, err)
	}
	return nil
}
