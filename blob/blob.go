// Package blob stores uploaded media and hands back publicly
// resolvable URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Disk stores media files on the local filesystem under a directory
// served as static content at BaseURL.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates the storage directory if needed.
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: baseURL}, nil
}

// Put writes the media stream to a fresh file and returns its public
// URL. The name is random so uploads can never collide or be guessed.
func (d *Disk) Put(ctx context.Context, ext, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = contentType // recorded in the file extension only

	name := uuid.NewString() + ext
	path := filepath.Join(d.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close media file: %w", err)
	}

	u, err := url.JoinPath(d.baseURL, name)
	if err != nil {
		return "", fmt.Errorf("join media url: %w", err)
	}
	return u, nil
}
