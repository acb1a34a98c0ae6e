package library

import (
	"context"
	"fmt"
	"path/filepath"
)

// DirPath resolves the on-disk directory of a container under root. A
// container with an alternate destination resolves to its master's
// directory; otherwise the path is the chain of ancestor folder names
// ending in the container's own name.
func (s *Store) DirPath(ctx context.Context, root string, container *Entity) (string, error) {
	if container == nil || !container.IsContainer() {
		return "", fmt.Errorf("directory requested for non-container entity")
	}

	current := container
	// Follow master redirection once; masters are authoritative by
	// definition so a chain of redirections is not valid data.
	if current.HasAlternateDestination() {
		master, err := s.GetByID(ctx, current.MasterID)
		if err != nil {
			return "", err
		}
		if master == nil {
			return "", fmt.Errorf("container %d: master %d not found", container.ID, current.MasterID)
		}
		current = master
	}

	segments := []string{current.Name}
	seen := map[int64]struct{}{current.ID: {}}
	for current.ParentID != 0 {
		parent, err := s.GetByID(ctx, current.ParentID)
		if err != nil {
			return "", err
		}
		if parent == nil {
			break
		}
		if _, ok := seen[parent.ID]; ok {
			return "", fmt.Errorf("container %d: parent cycle detected", container.ID)
		}
		seen[parent.ID] = struct{}{}
		segments = append([]string{parent.Name}, segments...)
		current = parent
	}

	return filepath.Join(append([]string{root}, segments...)...), nil
}

// VideoPath resolves the full path of a video's file, or "" when the stem
// is unknown. Dummy videos resolve to their recorded external path.
func (s *Store) VideoPath(ctx context.Context, root string, video *Entity) (string, error) {
	if video == nil || video.Kind != KindVideo {
		return "", fmt.Errorf("file path requested for non-video entity")
	}
	if video.Dummy && video.DummyPath != "" {
		return video.DummyPath, nil
	}
	if video.FileName == "" {
		return "", nil
	}
	parent, err := s.GetByID(ctx, video.ParentID)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", fmt.Errorf("video %d: parent %d not found", video.ID, video.ParentID)
	}
	dir, err := s.DirPath(ctx, root, parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, video.File()), nil
}
