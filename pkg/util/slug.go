package util

import "strings"

// Slugify turns a display name into a URL-safe slug: lowercased, runs of
// non-alphanumerics collapsed into single dashes. "0+" becomes "0-plus" to
// match the seeded category slugs.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "+", " plus")

	var b strings.Builder
	dash := false

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
