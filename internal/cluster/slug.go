package cluster

import "strings"

// Slugify converts a cluster label into a filesystem-safe folder name:
// lowercased, with every rune outside [a-z0-9_] replaced by an underscore.
func Slugify(label string) string {
	lower := strings.ToLower(label)
	var sb strings.Builder
	sb.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
