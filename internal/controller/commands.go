package controller

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// characters of file content a /read reply shows before truncating
const maxReadChars = 4000

// runCommand intercepts the textual command prefixes. The reply is a plain
// text notice; scoping and I/O failures become notices too, so the
// conversation flow is never interrupted.
func (c *Controller) runCommand(text string) (string, bool) {
	switch {
	case strings.HasPrefix(text, "/read "):
		return c.readCommand(strings.TrimSpace(strings.TrimPrefix(text, "/read "))), true

	case strings.HasPrefix(text, "/edit "):
		return c.editCommand(strings.TrimPrefix(text, "/edit ")), true

	default:
		return "", false
	}
}

func (c *Controller) readCommand(path string) string {
	if path == "" {
		return "Usage: /read <path>"
	}

	content, err := c.host.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Cannot read %s: %v", path, err)
	}

	notice := ""
	if len(content) > maxReadChars {
		// back off to a rune boundary so the cut never splits a multi-byte
		// character
		cut := maxReadChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}

		notice = fmt.Sprintf("\n\n[Truncated: showing first %d of %d characters]", cut, len(content))
		content = content[:cut]
	}

	return fmt.Sprintf("Content of %s:\n```\n%s\n```%s", path, content, notice)
}

// /edit <path> <content> — single-line path, rest of the message is content
func (c *Controller) editCommand(args string) string {
	path, content, found := strings.Cut(strings.TrimLeft(args, " "), " ")
	if !found || path == "" {
		return "Usage: /edit <path> <content>"
	}

	if err := c.host.WriteFile(path, content); err != nil {
		return fmt.Sprintf("Cannot edit %s: %v", path, err)
	}

	return fmt.Sprintf("Updated %s.", path)
}
