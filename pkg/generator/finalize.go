package generator

import (
	"strings"
)

// closingSentence is appended when an utterance has no complete sentence.
const closingSentence = "This is my perspective on the matter."

// Finalize trims text to its last complete sentence and caps it at maxWords
// words. Text with no sentence terminator gets a closing sentence instead.
// When the capped text has no terminator it is cut at the cap and marked
// with "...". maxWords <= 0 disables the cap.
func Finalize(text string, maxWords int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return closingSentence
	}

	if !endsSentence(text) {
		if end := lastSentenceEnd(text); end > 0 {
			text = text[:end+1]
		} else {
			text += " " + closingSentence
		}
	}

	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	truncated := strings.Join(words[:maxWords], " ")
	if end := lastSentenceEnd(truncated); end > 0 {
		return truncated[:end+1]
	}
	return truncated + "..."
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

func lastSentenceEnd(text string) int {
	return strings.LastIndexAny(text, ".!?")
}
