// Package attachments stores uploaded resume files on local disk and hands
// back the URL under which they are served.
package attachments

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("attachment exceeds size limit")
	ErrUnsupportedType = errors.New("attachment type not allowed")
	ErrEmpty           = errors.New("attachment is empty")
)

// DefaultAllowedTypes are the resume formats accepted when none are configured.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// File is one uploaded file as received from the transport layer.
type File struct {
	Name string
	Body io.Reader
}

// Stored describes a persisted attachment.
type Stored struct {
	URL         string
	Size        int64
	Checksum    string
	ContentType string
}

// FileStore writes attachments below dir. Files are written to a temp file,
// hashed while streaming and renamed into place only once complete.
type FileStore struct {
	dir          string
	baseURL      string
	maxBytes     int64
	allowedTypes []string
}

func NewFileStore(dir, baseURL string, maxBytes int64, allowedTypes []string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory %s: %w", dir, err)
	}
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FileStore{dir: dir, baseURL: baseURL, maxBytes: maxBytes, allowedTypes: allowedTypes}, nil
}

// Dir is the directory attachments are written to, for static serving.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Save(ctx context.Context, f File) (*Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header := make([]byte, 3072)
	n, err := io.ReadFull(f.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	header = header[:n]

	mtype := mimetype.Detect(header)
	if !mimetype.EqualsAny(mtype.String(), s.allowedTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	name := storageName(f.Name, mtype.Extension())
	fullPath := filepath.Join(s.dir, name)
	tmpPath := fullPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := sha256.New()
	// one byte past the limit lets us tell "exactly max" from "too large"
	body := io.LimitReader(io.MultiReader(bytes.NewReader(header), f.Body), s.maxBytes+1)
	size, err := io.Copy(out, io.TeeReader(body, hasher))
	if err == nil && size > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.maxBytes)
		}
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to move attachment into place: %w", err)
	}

	return &Stored{
		URL:         s.baseURL + name,
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
		ContentType: mtype.String(),
	}, nil
}

// Delete removes a file previously returned by Save. Missing files are not an error.
func (s *FileStore) Delete(_ context.Context, url string) error {
	name := strings.TrimPrefix(url, s.baseURL)
	if name == url || name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("attachment url %q is not managed by this store", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete attachment %s: %w", name, err)
	}
	slog.Debug("Attachment deleted", "name", name)
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// storageName keeps a readable stem of the original name and makes it unique.
func storageName(original, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem = strings.Trim(unsafeChars.ReplaceAllString(stem, "_"), "_")
	if len(stem) > 50 {
		stem = stem[:50]
	}
	if stem == "" {
		stem = "resume"
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext)
}
