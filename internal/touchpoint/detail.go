package touchpoint

import "strings"

const (
	DefaultDetailMaxLen = 200
	ellipsis            = "..."
)

// Truncate flattens line breaks and caps text at max runes. Truncated text
// ends with an ellipsis and never exceeds max.
func Truncate(text string, max int) string {
	text = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text))
	if max <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(r[:max])
	}
	return string(r[:max-len(ellipsis)]) + ellipsis
}
