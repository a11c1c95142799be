package models

import "strings"

// PlatformName identifies one of the supported blogging services.
type PlatformName string

const (
	PlatformDevTo     PlatformName = "DevTo"
	PlatformMedium    PlatformName = "Medium"
	PlatformHashnode  PlatformName = "Hashnode"
	PlatformGhost     PlatformName = "Ghost"
	PlatformWordPress PlatformName = "WordPress"
	PlatformBlogger   PlatformName = "Blogger"
)

// Platforms lists every supported platform in display order.
var Platforms = []PlatformName{
	PlatformDevTo,
	PlatformMedium,
	PlatformHashnode,
	PlatformGhost,
	PlatformWordPress,
	PlatformBlogger,
}

// Valid reports whether p is one of the supported platforms.
func (p PlatformName) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

func (p PlatformName) String() string {
	return string(p)
}

// ParsePlatformName matches a platform name case-insensitively. Aliases such as
// "dev.to" or "wordpress.com" are accepted.
func ParsePlatformName(name string) (PlatformName, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.TrimSuffix(normalized, ".com")
	normalized = strings.ReplaceAll(normalized, ".", "")
	normalized = strings.ReplaceAll(normalized, "-", "")

	for _, known := range Platforms {
		if strings.ToLower(string(known)) == normalized {
			return known, true
		}
	}
	return "", false
}
