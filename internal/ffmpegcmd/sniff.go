package ffmpegcmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sniffed formats a thumbnail can actually be, regardless of its claimed
// extension.
type SniffedFormat string

const (
	FormatUnknown SniffedFormat = ""
	FormatJPEG    SniffedFormat = ".jpg"
	FormatWEBP    SniffedFormat = ".webp"
)

var (
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// SniffImageFormat reads the leading magic bytes of a file and reports its
// true image format. Formats outside the two the downloader emits report
// FormatUnknown.
func SniffImageFormat(path string) (SniffedFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer file.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatUnknown, err
	}
	header = header[:n]

	if len(header) >= 3 && bytes.Equal(header[:3], jpegMagic) {
		return FormatJPEG, nil
	}
	if len(header) >= 12 && bytes.Equal(header[:4], riffMagic) && bytes.Equal(header[8:12], webpMagic) {
		return FormatWEBP, nil
	}
	return FormatUnknown, nil
}

// CorrectThumbnailExtension renames a thumbnail whose claimed extension
// disagrees with its magic bytes, returning the path to use afterwards.
// The correction runs before any transcoding decision so downstream
// commands always see a truthful extension. A file whose format cannot be
// sniffed is left untouched.
func CorrectThumbnailExtension(path string) (string, error) {
	format, err := SniffImageFormat(path)
	if err != nil {
		return "", fmt.Errorf("sniff %s: %w", path, err)
	}
	if format == FormatUnknown {
		return path, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if extMatchesFormat(ext, format) {
		return path, nil
	}

	corrected := strings.TrimSuffix(path, filepath.Ext(path)) + string(format)
	if err := os.Rename(path, corrected); err != nil {
		return "", fmt.Errorf("correct thumbnail extension: %w", err)
	}
	return corrected, nil
}

func extMatchesFormat(ext string, format SniffedFormat) bool {
	switch format {
	case FormatJPEG:
		return ext == ".jpg" || ext == ".jpeg"
	case FormatWEBP:
		return ext == ".webp"
	}
	return false
}
