package ops

import "fmt"

// Tally accumulates per-category counters over one operation run. Counters
// reset with each run; they are reporting state, not registry state.
type Tally struct {
	Success int
	Fail    int

	Matched int
	New     int
	Missing int

	PossiblyCorrupt int

	DeletedVideos      int
	DeletedSiblings    int
	DeletedDescription int
	DeletedMetadata    int
	DeletedAnnotations int
	DeletedThumbnails  int
	DeletedArchives    int
}

// Summary renders the non-zero counters as a one-line report.
func (t *Tally) Summary() string {
	type counter struct {
		label string
		value int
	}
	counters := []counter{
		{"success", t.Success},
		{"fail", t.Fail},
		{"matched", t.Matched},
		{"new", t.New},
		{"missing", t.Missing},
		{"possibly-corrupt", t.PossiblyCorrupt},
		{"deleted-videos", t.DeletedVideos},
		{"deleted-siblings", t.DeletedSiblings},
		{"deleted-descriptions", t.DeletedDescription},
		{"deleted-metadata", t.DeletedMetadata},
		{"deleted-annotations", t.DeletedAnnotations},
		{"deleted-thumbnails", t.DeletedThumbnails},
		{"deleted-archives", t.DeletedArchives},
	}

	out := ""
	for _, c := range counters {
		if c.value == 0 {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", c.label, c.value)
	}
	if out == "" {
		return "nothing to do"
	}
	return out
}
