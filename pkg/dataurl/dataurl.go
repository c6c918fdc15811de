// Package dataurl turns uploaded images into strings that can be embedded
// directly in a user's profilePicture field.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize bounds an uploaded picture before encoding.
const MaxImageSize = 2 << 20

var (
	ErrEmpty    = errors.New("image is empty")
	ErrTooLarge = errors.New("image is too large")
	ErrNotImage = errors.New("file is not an image")
)

// Encode reads r fully and returns data:<mime>;base64,<payload>. The MIME
// type is sniffed from the content, not taken from the file name.
func Encode(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(raw) == 0 {
		return "", ErrEmpty
	}
	if len(raw) > MaxImageSize {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
	}

	return "data:" + baseType(mtype.String()) + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// baseType strips parameters such as "; charset=utf-8" (svg is sniffed as text).
func baseType(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}
