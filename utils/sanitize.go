package utils

import "github.com/microcosm-cc/bluemonday"

// Post and comment bodies are plain text, so everything HTML-shaped is
// stripped rather than filtered to a safe subset.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips HTML from user supplied content to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
