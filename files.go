package kintoneclient

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"
)

var osFs = afero.NewOsFs()

// File is the content of a file to upload
type File struct {
	Name     string
	MimeType string
	Bytes    []byte
}

// FileSource resolves an opaque file identifier to its content
type FileSource interface {
	Open(ctx context.Context, id string) (*File, error)
}

// FSFileSource is a FileSource treating ids as paths on a file system
type FSFileSource struct {
	fs afero.Fs
}

var _ FileSource = &FSFileSource{}

// NewFSFileSource returns a FileSource reading from fs, use
// afero.NewOsFs() for the local disk
func NewFSFileSource(fs afero.Fs) *FSFileSource {
	return &FSFileSource{fs: fs}
}

func (s *FSFileSource) Open(ctx context.Context, id string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(s.fs, id)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", id, err)
	}

	name := filepath.Base(id)
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	return &File{
		Name:     name,
		MimeType: mimeType,
		Bytes:    content,
	}, nil
}
