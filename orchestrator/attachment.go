package orchestrator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Attachment is a document picked for upload. Only the orchestrator holds it; it never enters the
// conversation state.
type Attachment struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileAttachment describes the file at path without reading it.
func FileAttachment(path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	return Attachment{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

func (c Config) checkAttachment(a Attachment) error {
	if a.Name == "" || a.Open == nil {
		return fmt.Errorf("%w: attachment has no content", ErrUnsupportedAttachment)
	}
	if c.MaxAttachmentSize > 0 && a.Size > c.MaxAttachmentSize {
		return fmt.Errorf("%w: %d bytes", ErrAttachmentTooLarge, a.Size)
	}
	if len(c.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(a.Name))
		if !slices.Contains(c.AllowedExtensions, ext) {
			return fmt.Errorf("%w: %q", ErrUnsupportedAttachment, ext)
		}
	}
	return nil
}

// BytesAttachment wraps content that is already in memory, e.g. a file sent by a presentation
// client.
func BytesAttachment(name string, data []byte) Attachment {
	return Attachment{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}
