package ffmpegcmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func webpBytes() []byte {
	return []byte("RIFF\x10\x00\x00\x00WEBPVP8 ")
}

func jpegBytes() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
}

func TestSniffImageFormat(t *testing.T) {
	dir := t.TempDir()

	webp := filepath.Join(dir, "thumb.bin")
	writeFile(t, webp, webpBytes())
	if format, err := SniffImageFormat(webp); err != nil || format != FormatWEBP {
		t.Fatalf("webp sniff: format=%q err=%v", format, err)
	}

	jpeg := filepath.Join(dir, "photo.bin")
	writeFile(t, jpeg, jpegBytes())
	if format, err := SniffImageFormat(jpeg); err != nil || format != FormatJPEG {
		t.Fatalf("jpeg sniff: format=%q err=%v", format, err)
	}

	other := filepath.Join(dir, "other.bin")
	writeFile(t, other, []byte("PNG-ish"))
	if format, err := SniffImageFormat(other); err != nil || format != FormatUnknown {
		t.Fatalf("unknown sniff: format=%q err=%v", format, err)
	}
}

func TestCorrectThumbnailExtensionRenames(t *testing.T) {
	dir := t.TempDir()

	// A WEBP masquerading as .jpg gets renamed before any conversion.
	lying := filepath.Join(dir, "thumb.jpg")
	writeFile(t, lying, webpBytes())
	corrected, err := CorrectThumbnailExtension(lying)
	if err != nil {
		t.Fatalf("CorrectThumbnailExtension: %v", err)
	}
	if corrected != filepath.Join(dir, "thumb.webp") {
		t.Fatalf("unexpected corrected path %q", corrected)
	}
	if _, err := os.Stat(lying); !os.IsNotExist(err) {
		t.Fatalf("original path should be gone")
	}

	// A truthful extension is untouched.
	honest := filepath.Join(dir, "ok.jpeg")
	writeFile(t, honest, jpegBytes())
	kept, err := CorrectThumbnailExtension(honest)
	if err != nil {
		t.Fatalf("CorrectThumbnailExtension: %v", err)
	}
	if kept != honest {
		t.Fatalf("truthful extension should be kept, got %q", kept)
	}
}
