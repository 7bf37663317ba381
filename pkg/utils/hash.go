package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// HashParts hashes the case-folded, trimmed parts joined by a unit separator,
// so ("a b", "c") and ("a", "b c") never collide.
func HashParts(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return HashString(strings.Join(normalized, "\x1f"))
}
