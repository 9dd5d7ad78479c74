package cleanblog

import "github.com/microcosm-cc/bluemonday"

// Post bodies and comments arrive as rich-text HTML from the editor.
var sanitizer = bluemonday.UGCPolicy()

// SanitizeHTML strips scripts, event handlers and other unsafe markup.
func SanitizeHTML(input string) string {
	return sanitizer.Sanitize(input)
}
