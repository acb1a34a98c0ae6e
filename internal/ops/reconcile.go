package ops

import (
	"context"
	"fmt"

	"tubevault/internal/library"
	"tubevault/internal/mediakind"
)

// DiskMatch pairs a matched entity with the extension found on disk, which
// may differ from the stored one.
type DiskMatch struct {
	Entity *library.Entity
	Ext    string
}

// NewFile is an unmatched, unclaimed disk file a refresh should create an
// entity for.
type NewFile struct {
	Stem string
	Ext  string
}

// MatchResult is the outcome of reconciling one directory listing against
// one container's entities.
type MatchResult struct {
	Matched []DiskMatch
	// Alternates maps a stem to the additional filenames sharing it;
	// only the first file per stem (in listing order) participates in
	// matching.
	Alternates map[string][]string
	// NewFiles are disk files with no matching entity and no claim from
	// a slave container, in listing order.
	NewFiles []NewFile
	// MissingEntities were downloaded but have no file on disk anymore.
	MissingEntities []*library.Entity
}

// MatchDirectory reconciles a raw directory listing (in directory order,
// which is platform-defined and significant for alternate selection)
// against the given entities. slaveStems carries the stems every slave
// container sharing this directory already claims; files matching those
// stems are skipped rather than adopted.
//
// Guarantees: a disk file matches at most one entity, at most one NewFile
// is produced per stem, and re-running over unchanged inputs yields the
// same result.
func MatchDirectory(tables *mediakind.Tables, listing []string, entities []*library.Entity, slaveStems map[string]struct{}) MatchResult {
	result := MatchResult{Alternates: make(map[string][]string)}

	// Pass 1: first file per stem wins; later files with the same stem
	// are recorded as alternates and excluded from matching.
	primary := make(map[string]string, len(listing))
	order := make([]string, 0, len(listing))
	for _, name := range listing {
		stem, ext := mediakind.SplitStem(name)
		if !tables.IsMedia(ext) {
			continue
		}
		if _, seen := primary[stem]; seen {
			result.Alternates[stem] = append(result.Alternates[stem], name)
			continue
		}
		primary[stem] = name
		order = append(order, stem)
	}

	// Pass 2: entities with a known filename, keyed by stem. Duplicate
	// stems keep the first entity; reconciliation never matches one file
	// to two entities.
	byStem := make(map[string]*library.Entity, len(entities))
	for _, entity := range entities {
		if entity.Kind != library.KindVideo || entity.FileName == "" {
			continue
		}
		if _, seen := byStem[entity.FileName]; !seen {
			byStem[entity.FileName] = entity
		}
	}

	// Pass 3: walk disk stems in listing order.
	for _, stem := range order {
		name := primary[stem]
		_, ext := mediakind.SplitStem(name)

		if entity, ok := byStem[stem]; ok {
			// Remove so the entity cannot match twice.
			delete(byStem, stem)
			result.Matched = append(result.Matched, DiskMatch{Entity: entity, Ext: ext})
			continue
		}
		if _, claimed := slaveStems[stem]; claimed {
			continue
		}
		result.NewFiles = append(result.NewFiles, NewFile{Stem: stem, Ext: ext})
	}

	// Anything left in the entity map has no backing file. Only entities
	// currently marked downloaded need flipping.
	for _, stem := range entityStemsInOrder(entities, byStem) {
		entity := byStem[stem]
		if entity.Downloaded {
			result.MissingEntities = append(result.MissingEntities, entity)
		}
	}

	return result
}

// entityStemsInOrder returns the stems still present in remaining, in the
// original entity order, so results do not depend on map iteration.
func entityStemsInOrder(entities []*library.Entity, remaining map[string]*library.Entity) []string {
	stems := make([]string, 0, len(remaining))
	seen := make(map[string]struct{}, len(remaining))
	for _, entity := range entities {
		if entity.Kind != library.KindVideo || entity.FileName == "" {
			continue
		}
		if _, ok := remaining[entity.FileName]; !ok {
			continue
		}
		if _, dup := seen[entity.FileName]; dup {
			continue
		}
		// Only count the stem if the remaining map still points at this
		// exact entity; a duplicate-stem sibling was already matched.
		if remaining[entity.FileName] != entity {
			continue
		}
		seen[entity.FileName] = struct{}{}
		stems = append(stems, entity.FileName)
	}
	return stems
}

// SlaveStemSet collects the file stems claimed by the given entities,
// typically the videos of every slave container sharing a directory.
func SlaveStemSet(videos []*library.Entity) map[string]struct{} {
	stems := make(map[string]struct{}, len(videos))
	for _, video := range videos {
		if video.Kind != library.KindVideo || video.FileName == "" {
			continue
		}
		stems[video.FileName] = struct{}{}
	}
	return stems
}

// collectSlaveStems gathers every stem claimed by containers that treat
// container as their authoritative directory.
func collectSlaveStems(ctx context.Context, store *library.Store, container *library.Entity) (map[string]struct{}, error) {
	slaves, err := store.SlavesOf(ctx, container.ID)
	if err != nil {
		return nil, fmt.Errorf("list slaves of %q: %w", container.Name, err)
	}
	stems := make(map[string]struct{})
	for _, slave := range slaves {
		videos, err := store.Videos(ctx, slave.ID)
		if err != nil {
			return nil, fmt.Errorf("list videos of slave %q: %w", slave.Name, err)
		}
		for stem := range SlaveStemSet(videos) {
			stems[stem] = struct{}{}
		}
	}
	return stems, nil
}
