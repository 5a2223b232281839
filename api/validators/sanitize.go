package validators

import "strings"

// SanitizeString trims surrounding whitespace and clamps the result to maxLen
// bytes. A maxLen of zero means unbounded. Names and free-text fields pass
// through here before they reach a repository.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.TrimSpace(input)
	if maxLen <= 0 || len(cleaned) <= maxLen {
		return cleaned
	}
	return cleaned[:maxLen]
}
