// Package mediakind holds the immutable file-format tables shared by the
// operation managers: recognized media extensions, thumbnail extensions,
// companion-file suffixes, and the downloader archive name.
package mediakind

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Tables is built once at startup and passed by reference. It is never
// mutated after construction.
type Tables struct {
	videoExts     map[string]struct{}
	audioExts     map[string]struct{}
	thumbnailExts map[string]struct{}

	videoExtList     []string
	thumbnailExtList []string
}

// Companion file suffixes written by the downloader alongside media files.
const (
	DescriptionSuffix = ".description"
	MetadataSuffix    = ".info.json"
	AnnotationsSuffix = ".annotations.xml"
)

// ArchiveFileName is the per-container downloader archive file.
const ArchiveFileName = "ytdl-archive.txt"

// fragmentPattern matches numbered download-fragment artifacts such as
// "clip.f137.mp4".
var fragmentPattern = regexp.MustCompile(`\.f\d+$`)

var defaultVideoExts = []string{
	".mp4", ".mkv", ".webm", ".avi", ".mov", ".flv", ".3gp", ".m4v",
	".mpg", ".mpeg", ".ogv", ".ts", ".wmv",
}

var defaultAudioExts = []string{
	".m4a", ".mp3", ".ogg", ".opus", ".wav", ".flac", ".aac",
}

var defaultThumbnailExts = []string{
	".jpg", ".jpeg", ".png", ".webp", ".gif",
}

// Default returns the stock format tables.
func Default() *Tables {
	return New(defaultVideoExts, defaultAudioExts, defaultThumbnailExts)
}

// New builds format tables from explicit extension lists. Extensions are
// normalized to lowercase with a leading dot.
func New(video, audio, thumbnail []string) *Tables {
	t := &Tables{
		videoExts:     make(map[string]struct{}, len(video)),
		audioExts:     make(map[string]struct{}, len(audio)),
		thumbnailExts: make(map[string]struct{}, len(thumbnail)),
	}
	for _, ext := range video {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		if _, ok := t.videoExts[ext]; !ok {
			t.videoExts[ext] = struct{}{}
			t.videoExtList = append(t.videoExtList, ext)
		}
	}
	for _, ext := range audio {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		t.audioExts[ext] = struct{}{}
	}
	for _, ext := range thumbnail {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		if _, ok := t.thumbnailExts[ext]; !ok {
			t.thumbnailExts[ext] = struct{}{}
			t.thumbnailExtList = append(t.thumbnailExtList, ext)
		}
	}
	return t
}

// IsVideo reports whether ext names a recognized video container.
func (t *Tables) IsVideo(ext string) bool {
	_, ok := t.videoExts[normalizeExt(ext)]
	return ok
}

// IsAudio reports whether ext names a recognized audio format.
func (t *Tables) IsAudio(ext string) bool {
	_, ok := t.audioExts[normalizeExt(ext)]
	return ok
}

// IsMedia reports whether ext is a recognized video or audio extension.
func (t *Tables) IsMedia(ext string) bool {
	return t.IsVideo(ext) || t.IsAudio(ext)
}

// IsThumbnail reports whether ext names a recognized thumbnail format.
func (t *Tables) IsThumbnail(ext string) bool {
	_, ok := t.thumbnailExts[normalizeExt(ext)]
	return ok
}

// VideoExtensions returns the recognized video extensions in registration
// order.
func (t *Tables) VideoExtensions() []string {
	out := make([]string, len(t.videoExtList))
	copy(out, t.videoExtList)
	return out
}

// ThumbnailExtensions returns the recognized thumbnail extensions in
// registration order.
func (t *Tables) ThumbnailExtensions() []string {
	out := make([]string, len(t.thumbnailExtList))
	copy(out, t.thumbnailExtList)
	return out
}

// SplitStem returns the stem and extension of a filename. The extension
// keeps its leading dot and original case.
func SplitStem(name string) (stem, ext string) {
	base := filepath.Base(name)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// IsFragment reports whether stem carries a numbered-fragment marker such
// as "clip.f137" left behind by an interrupted download.
func IsFragment(stem string) bool {
	return fragmentPattern.MatchString(stem)
}

// FragmentRoot strips the fragment marker from stem. It returns the input
// unchanged when no marker is present.
func FragmentRoot(stem string) string {
	return fragmentPattern.ReplaceAllString(stem, "")
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
