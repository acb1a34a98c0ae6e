package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNameConflict indicates a sibling container already uses the requested
// name, which would collide on disk.
var ErrNameConflict = errors.New("container name already in use")

// CreateContainer inserts a channel, playlist, or folder. The new container
// is authoritative for its own directory (master_id = id).
func (s *Store) CreateContainer(ctx context.Context, kind Kind, name string, parentID int64) (*Entity, error) {
	if !kind.IsContainer() {
		return nil, fmt.Errorf("kind %q is not a container", kind)
	}
	if name == "" {
		return nil, errors.New("container name required")
	}

	var clash int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entities WHERE kind != ? AND name = ?`,
		KindVideo, name,
	).Scan(&clash)
	if err != nil {
		return nil, fmt.Errorf("check container name: %w", err)
	}
	if clash > 0 {
		return nil, fmt.Errorf("%w: %q", ErrNameConflict, name)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, parent_id, name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		string(kind), nullableID(parentID), name, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert container: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE entities SET master_id = ? WHERE id = ?`, id, id,
	); err != nil {
		return nil, fmt.Errorf("set master id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// CreateVideo inserts a video entity under a container. The video starts
// without a known file and not downloaded.
func (s *Store) CreateVideo(ctx context.Context, containerID int64, name string) (*Entity, error) {
	if name == "" {
		return nil, errors.New("video name required")
	}
	container, err := s.GetByID(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if container == nil || !container.IsContainer() {
		return nil, fmt.Errorf("entity %d is not a container", containerID)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, parent_id, name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		string(KindVideo), containerID, name, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an entity by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return entity, nil
}

// Children returns the direct children of a container in insertion order.
func (s *Store) Children(ctx context.Context, containerID int64) ([]*Entity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE parent_id = ? ORDER BY id`,
		containerID,
	)
}

// Videos returns the video children of a container in insertion order.
func (s *Store) Videos(ctx context.Context, containerID int64) ([]*Entity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE parent_id = ? AND kind = ? ORDER BY id`,
		containerID, string(KindVideo),
	)
}

// Containers returns every channel, playlist, and folder in insertion order.
func (s *Store) Containers(ctx context.Context) ([]*Entity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE kind != ? ORDER BY id`,
		string(KindVideo),
	)
}

// SlavesOf returns containers that designate master as their authoritative
// destination, excluding master itself.
func (s *Store) SlavesOf(ctx context.Context, masterID int64) ([]*Entity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE master_id = ? AND id != ? ORDER BY id`,
		masterID, masterID,
	)
}

// FindVideoByStem returns the first video in a container whose file stem
// matches. Returns nil when no video matches.
func (s *Store) FindVideoByStem(ctx context.Context, containerID int64, stem string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities
         WHERE parent_id = ? AND kind = ? AND file_name = ?
         ORDER BY id LIMIT 1`,
		containerID, string(KindVideo), stem,
	)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find video by stem: %w", err)
	}
	return entity, nil
}

// MarkDownloaded flips a video's downloaded flag.
func (s *Store) MarkDownloaded(ctx context.Context, id int64, downloaded bool) error {
	return s.updateEntity(ctx, id,
		`UPDATE entities SET downloaded = ?, updated_at = ? WHERE id = ?`,
		boolToInt(downloaded),
	)
}

// SetFile records a video's on-disk stem and extension.
func (s *Store) SetFile(ctx context.Context, id int64, stem, ext string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET file_name = ?, file_ext = ?, updated_at = ? WHERE id = ?`,
		nullableString(stem), nullableString(ext), timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("set file: %w", err)
	}
	return requireRow(res, id)
}

// SetName renames an entity.
func (s *Store) SetName(ctx context.Context, id int64, name string) error {
	if name == "" {
		return errors.New("name required")
	}
	return s.updateEntity(ctx, id,
		`UPDATE entities SET name = ?, updated_at = ? WHERE id = ?`,
		name,
	)
}

// SetStamps replaces a video's clip timestamp list.
func (s *Store) SetStamps(ctx context.Context, id int64, stamps []Stamp) error {
	value, err := stampsValue(stamps)
	if err != nil {
		return err
	}
	return s.updateEntity(ctx, id,
		`UPDATE entities SET stamps_json = ?, updated_at = ? WHERE id = ?`,
		value,
	)
}

// SetMaster points a container at an alternate authoritative destination.
// Passing the container's own id restores normal ownership.
func (s *Store) SetMaster(ctx context.Context, id, masterID int64) error {
	master, err := s.GetByID(ctx, masterID)
	if err != nil {
		return err
	}
	if master == nil || !master.IsContainer() {
		return fmt.Errorf("entity %d is not a container", masterID)
	}
	return s.updateEntity(ctx, id,
		`UPDATE entities SET master_id = ?, updated_at = ? WHERE id = ?`,
		masterID,
	)
}

// SetSourceURL records the remote address downloads pull from.
func (s *Store) SetSourceURL(ctx context.Context, id int64, url string) error {
	return s.updateEntity(ctx, id,
		`UPDATE entities SET source_url = ?, updated_at = ? WHERE id = ?`,
		nullableString(url),
	)
}

// SetPrivate flips a container's exclusion from bulk operations.
func (s *Store) SetPrivate(ctx context.Context, id int64, private bool) error {
	return s.updateEntity(ctx, id,
		`UPDATE entities SET private = ?, updated_at = ? WHERE id = ?`,
		boolToInt(private),
	)
}

// SetDummy marks a video as imported from outside the registry, recording
// the external path it was found at.
func (s *Store) SetDummy(ctx context.Context, id int64, path string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET dummy = 1, dummy_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(path), timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("set dummy: %w", err)
	}
	return requireRow(res, id)
}

// DeleteEntity removes an entity; children are removed by cascade. File
// deletion is the caller's responsibility.
func (s *Store) DeleteEntity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return requireRow(res, id)
}

// CountByKind tallies entities per kind for status output.
func (s *Store) CountByKind(ctx context.Context) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(1) FROM entities GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[Kind]int, len(allKinds))
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if parsed, ok := ParseKind(kind); ok {
			counts[parsed] = count
		}
	}
	return counts, rows.Err()
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (s *Store) updateEntity(ctx context.Context, id int64, query string, value any) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, query, value, timestamp, id)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entity %d not found", id)
	}
	return nil
}
