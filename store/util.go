package store

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen is how many leading bytes http.DetectContentType looks at.
const sniffLen = 512

// MediaFile is a file staged for upload.
type MediaFile struct {
	Name        string // base name sent to the upload endpoint
	ContentType string // becomes the envelope media type
	Size        int64

	open func() (io.ReadCloser, error)
}

// NewMediaFile builds a media file from an opener, e.g. for in-memory content.
func NewMediaFile(name, contentType string, size int64, open func() (io.ReadCloser, error)) *MediaFile {
	return &MediaFile{Name: name, ContentType: contentType, Size: size, open: open}
}

// Open returns a fresh reader over the content, the caller closes it.
func (f *MediaFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("media file %q: no content", f.Name)
	}
	return f.open()
}

func (f *MediaFile) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", f.Name, f.ContentType, f.Size)
}

// OpenMediaFile stats the file at path and detects its content type.
func OpenMediaFile(path string) (*MediaFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}

	head, err := readHead(path)
	if err != nil {
		return nil, err
	}

	return &MediaFile{
		Name:        filepath.Base(path),
		ContentType: DetectContentType(path, head),
		Size:        st.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// DetectContentType prefers the extension, then sniffs the leading bytes.
// Parameters such as charset are dropped.
func DetectContentType(name string, head []byte) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(head)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}
