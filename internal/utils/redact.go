package utils

import "strings"

// RedactEmail masks an address for logs: "john.doe@example.com" becomes
// "jo***@example.com".
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	if name := parts[0]; len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
