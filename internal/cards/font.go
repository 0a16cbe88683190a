package cards

import (
	"regexp"
	"strings"
)

var loadableFamily = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// FontStylesheetURL is the Google Fonts css2 URL for family at weights 400 and 600. Families
// that are not a plain name (stacks, quotes, punctuation) yield "".
func FontStylesheetURL(family string) string {
	family = strings.TrimSpace(family)
	if family == "" || !loadableFamily.MatchString(family) {
		return ""
	}
	q := strings.Join(strings.Fields(family), "+")
	return "https://fonts.googleapis.com/css2?family=" + q + ":wght@400;600&display=swap"
}
