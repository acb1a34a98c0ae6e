// Package library persists the media registry: the graph of videos and
// their containers (channels, playlists, folders) backed by SQLite.
//
// The operation managers consume the Store through its boundary operations
// (FindVideoByStem, CreateVideo, MarkDownloaded, SetFile, DeleteEntity,
// SlavesOf) and never touch SQL directly. A flock lock file next to the
// database enforces a single writing instance.
package library
