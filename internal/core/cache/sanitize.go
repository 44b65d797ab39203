package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// SanitizeKey maps a cache key onto a name that is safe as a file name or
// storage key. Lowercase letters, digits, '_' and '-' pass through
// unchanged; every other byte, uppercase letters included, becomes '.'
// followed by two uppercase hex digits.
//
// The mapping is deterministic and injective even on case-insensitive file
// systems, so unrelated keys never share a location. It works byte by byte,
// so SanitizeKey(prefix) is always a prefix of SanitizeKey(prefix+rest).
func SanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, ".%02X", c)
	}
	return b.String()
}

// UnsanitizeKey reverses SanitizeKey.
func UnsanitizeKey(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '.' {
			if !isSafe(c) {
				return "", fmt.Errorf("unsanitize %q: unexpected byte %q", name, c)
			}
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(name) {
			return "", fmt.Errorf("unsanitize %q: truncated escape", name)
		}
		v, err := strconv.ParseUint(name[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("unsanitize %q: %w", name, err)
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), nil
}

func isSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
