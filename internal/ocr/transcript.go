package ocr

import "strings"

// cleanTranscript normalizes a model's transcript response. Vision
// models occasionally wrap output in markdown fences despite being told
// not to, and mix line-ending styles.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}
