package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// TrimInputString keeps case, for fields like names and raw error text.
func TrimInputString(input string) string {
	return strings.TrimSpace(input)
}
