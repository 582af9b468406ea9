package validation

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func MaxTitleLength() int {
	return 120
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		// Never cut inside a multi-byte rune.
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut]
	}
	return s
}

// NormalizeQuery prepares a user-supplied search term for a prefix match.
func NormalizeQuery(s string) string {
	return TrimAndLimit(s, 64)
}
