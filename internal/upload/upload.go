// Package upload stages multipart files on local disk and relocates them
// into per-person object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/your-org/kinfolk/internal/models"
)

const discardTimeout = 30 * time.Second

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName makes a person's name safe for use as a storage path segment.
// Only ASCII letters, digits, underscore and hyphen survive; everything else
// becomes an underscore.
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(name, "_")
}

// Stager writes incoming files under Dir with generated names.
type Stager struct {
	Dir    string
	Prefix string
}

func NewStager(dir, prefix string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Stager{Dir: dir, Prefix: prefix}, nil
}

// Stage copies one multipart file to disk and returns its metadata.
func (s *Stager) Stage(fh *multipart.FileHeader) (models.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s-%d-%d%s", s.Prefix, time.Now().UnixMilli(), rand.Intn(1e9), filepath.Ext(fh.Filename))
	dst := filepath.Join(s.Dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("create staged file: %w", err)
	}
	size, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return models.UploadedFile{}, fmt.Errorf("write staged file: %w", err)
	}

	return models.UploadedFile{
		Filename:     name,
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         size,
		Path:         dst,
	}, nil
}

// StageAll stages every file; on failure the already staged ones are removed.
func (s *Stager) StageAll(headers []*multipart.FileHeader) ([]models.UploadedFile, error) {
	files := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := s.Stage(fh)
		if err != nil {
			Cleanup(files)
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Cleanup removes staged files from local disk.
func Cleanup(files []models.UploadedFile) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove staged file", "path", f.Path, "error", err)
		}
	}
}

// ObjectStore is where relocated files end up.
type ObjectStore interface {
	PutFile(ctx context.Context, key, path, contentType string) error
	DeleteObjects(ctx context.Context, keys []string) error
}

type Relocator struct {
	store ObjectStore
}

func NewRelocator(store ObjectStore) *Relocator {
	return &Relocator{store: store}
}

// Key is the permanent object key for a file.
func Key(personName string, kind models.MediaType, filename string) string {
	return path.Join(SanitizeName(personName), string(kind), filename)
}

// Relocate moves staged files into object storage and returns them with Path
// rewritten to the object key. On error nothing stays in object storage.
func (r *Relocator) Relocate(ctx context.Context, personName string, kind models.MediaType, files []models.UploadedFile) ([]models.UploadedFile, error) {
	moved := make([]models.UploadedFile, 0, len(files))
	for _, f := range files {
		key := Key(personName, kind, f.Filename)
		if err := r.store.PutFile(ctx, key, f.Path, f.ContentType); err != nil {
			r.Discard(ctx, moved)
			return nil, fmt.Errorf("relocate %s: %w", f.OriginalName, err)
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove staged file", "path", f.Path, "error", err)
		}
		f.Path = key
		moved = append(moved, f)
	}
	return moved, nil
}

// Discard deletes relocated objects after a later step failed. It runs even
// when ctx is already cancelled.
func (r *Relocator) Discard(ctx context.Context, files []models.UploadedFile) {
	if len(files) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Path)
	}
	if err := r.store.DeleteObjects(ctx, keys); err != nil {
		slog.Error("discard relocated objects", "keys", keys, "error", err)
	}
}
