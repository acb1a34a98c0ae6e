package ffmpegcmd

import "fmt"

// TitleRegistry deduplicates clip titles across one operation run. The
// first claim of a title gets it unchanged; later claims get a numbered
// variant.
type TitleRegistry struct {
	claimed map[string]int
}

// NewTitleRegistry returns an empty registry.
func NewTitleRegistry() *TitleRegistry {
	return &TitleRegistry{claimed: make(map[string]int)}
}

// Claim reserves a unique variant of title.
func (r *TitleRegistry) Claim(title string) string {
	count := r.claimed[title]
	r.claimed[title] = count + 1
	if count == 0 {
		return title
	}
	variant := fmt.Sprintf("%s (%d)", title, count+1)
	// The numbered variant may itself collide with an explicit title.
	for r.claimed[variant] > 0 {
		count++
		variant = fmt.Sprintf("%s (%d)", title, count+1)
	}
	r.claimed[variant] = 1
	return variant
}
