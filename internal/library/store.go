package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"tubevault/internal/config"
)

// ErrLocked indicates another tubevault instance holds the database lock.
var ErrLocked = errors.New("library database locked by another instance")

// Store manages the media registry backed by SQLite. A flock lock file next
// to the database keeps concurrent instances from interleaving writes.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the library database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DatabaseDir, "library.db")
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire library lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection and releases the instance lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const entityColumns = `id, kind, parent_id, name, source_url, file_name,
    file_ext, downloaded, dummy, dummy_path, stamps_json, master_id,
    private, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var (
		entity     Entity
		kind       string
		parentID   sql.NullInt64
		sourceURL  sql.NullString
		fileName   sql.NullString
		fileExt    sql.NullString
		downloaded int
		dummy      int
		dummyPath  sql.NullString
		stampsJSON sql.NullString
		masterID   sql.NullInt64
		private    int
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(
		&entity.ID, &kind, &parentID, &entity.Name, &sourceURL, &fileName,
		&fileExt, &downloaded, &dummy, &dummyPath, &stampsJSON, &masterID,
		&private, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	parsedKind, ok := ParseKind(kind)
	if !ok {
		return nil, fmt.Errorf("entity %d: unknown kind %q", entity.ID, kind)
	}
	entity.Kind = parsedKind
	entity.ParentID = parentID.Int64
	entity.SourceURL = sourceURL.String
	entity.FileName = fileName.String
	entity.FileExt = fileExt.String
	entity.Downloaded = downloaded != 0
	entity.Dummy = dummy != 0
	entity.DummyPath = dummyPath.String
	entity.MasterID = masterID.Int64
	entity.Private = private != 0

	if stampsJSON.Valid && strings.TrimSpace(stampsJSON.String) != "" {
		if err := json.Unmarshal([]byte(stampsJSON.String), &entity.Stamps); err != nil {
			return nil, fmt.Errorf("entity %d: parse stamps: %w", entity.ID, err)
		}
	}

	var err error
	if entity.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("entity %d: created_at: %w", entity.ID, err)
	}
	if entity.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("entity %d: updated_at: %w", entity.ID, err)
	}

	return &entity, nil
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func stampsValue(stamps []Stamp) (any, error) {
	if len(stamps) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(stamps)
	if err != nil {
		return nil, fmt.Errorf("marshal stamps: %w", err)
	}
	return string(data), nil
}
