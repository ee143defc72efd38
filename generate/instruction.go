package generate

import (
	"strings"
)

// ExtractInstruction returns the first non-empty line of a model reply,
// trimmed. It returns "" when every line is empty, in which case the attempt
// is abandoned.
func ExtractInstruction(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// placeholders the model sometimes returns instead of an empty string.
var inputPlaceholders = map[string]bool{
	"''":  true,
	`""`:  true,
	"`":   true,
	"``":  true,
	"```": true,
}

// labels the model sometimes prepends to a generated input.
var inputLabels = []string{
	"入力:",
	"input:",
	"Input:",
	"ユーザー入力:",
	"例:",
	"サンプル:",
}

// sanitizeInput normalizes a generated auxiliary input: placeholder-only
// replies become "", and a single recognized leading label is stripped.
func sanitizeInput(text string) string {
	text = strings.TrimSpace(text)
	if inputPlaceholders[text] {
		return ""
	}
	for _, label := range inputLabels {
		if strings.HasPrefix(strings.ToLower(text), strings.ToLower(label)) {
			return strings.TrimSpace(text[len(label):])
		}
	}
	return text
}
