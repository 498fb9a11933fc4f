package media

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches the default read limit of mimetype.
const sniffLen = 3072

// DetectMIME returns the content type of a file from its first bytes.
// net/http's sniffer is tried first; mimetype covers the formats it does
// not know.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}
	mt := http.DetectContentType(head)
	if mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(head).String()
}

// IsVideo reports whether a detected MIME type is a video container.
func IsVideo(mime string) bool {
	return strings.HasPrefix(mime, "video/")
}

// Sniff reads the head of r and detects its content type. The returned
// reader replays the consumed bytes, so the whole stream can still be
// stored.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return DetectMIME(head), io.MultiReader(bytes.NewReader(head), r), nil
}
