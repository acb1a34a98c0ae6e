package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// DisplayTitle normalizes a container name for display: collapsed
// whitespace with title casing applied to lowercase words. Words already
// carrying capitals (acronyms, stylized names) are left alone.
func DisplayTitle(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(fields, " "))
}
