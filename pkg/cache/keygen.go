package cache

import (
	"fmt"
	"strings"
)

// KeySeparator joins the components of a cache key.
const KeySeparator = ":"

// Key builds a deterministic cache key from an ordered list of
// components. Nil components and empty strings are skipped; the
// remaining components keep their order. Keys are joined strings rather
// than content hashes so they stay readable in the store and stable
// across sessions.
//
//	Key("movie", 550, "credits") == "movie:550:credits"
//
// Every parameter that changes the response (page, language, filters)
// must appear as a component, otherwise two distinct requests collide
// on one key.
func Key(components ...any) string {
	parts := make([]string, 0, len(components))
	for _, component := range components {
		if component == nil {
			continue
		}
		s := fmt.Sprint(component)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, KeySeparator)
}
