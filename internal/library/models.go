package library

import (
	"strings"
	"time"
)

// Kind distinguishes the four entity variants. Switches over Kind are
// expected to be exhaustive.
type Kind string

const (
	KindVideo    Kind = "video"
	KindChannel  Kind = "channel"
	KindPlaylist Kind = "playlist"
	KindFolder   Kind = "folder"
)

var allKinds = []Kind{KindVideo, KindChannel, KindPlaylist, KindFolder}

// ParseKind validates a stored kind value.
func ParseKind(value string) (Kind, bool) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allKinds {
		if candidate == kind {
			return kind, true
		}
	}
	return "", false
}

// IsContainer reports whether the kind owns a directory and children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindChannel, KindPlaylist, KindFolder:
		return true
	case KindVideo:
		return false
	}
	return false
}

// Stamp is one clip timestamp pair attached to a video. Stop may be empty,
// meaning "until the next stamp or end of file".
type Stamp struct {
	Start string `json:"start"`
	Stop  string `json:"stop,omitempty"`
	Title string `json:"title,omitempty"`
}

// Entity is one row of the media registry: a video or a container
// (channel/playlist/folder).
//
// For containers, MasterID designates the container whose directory is
// authoritative for this one's files. MasterID == ID means the container
// owns its own directory; anything else makes it a slave sharing the
// master's directory without owning its files.
type Entity struct {
	ID        int64
	Kind      Kind
	ParentID  int64 // 0 for top-level entities
	Name      string
	SourceURL string

	// Video fields.
	FileName   string // stem, empty until a download or refresh sets it
	FileExt    string // extension with leading dot
	Downloaded bool
	Dummy      bool
	DummyPath  string
	Stamps     []Stamp

	// Container fields.
	MasterID int64
	Private  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsContainer reports whether the entity owns a directory and children.
func (e *Entity) IsContainer() bool {
	return e != nil && e.Kind.IsContainer()
}

// HasAlternateDestination reports whether a container stores its files in
// another container's directory.
func (e *Entity) HasAlternateDestination() bool {
	return e.IsContainer() && e.MasterID != 0 && e.MasterID != e.ID
}

// File returns the entity's full filename, or "" when the stem is unknown.
func (e *Entity) File() string {
	if e == nil || e.FileName == "" {
		return ""
	}
	return e.FileName + e.FileExt
}
