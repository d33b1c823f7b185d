package tools

import (
	"io"
	"strings"
	"unicode"
)

func DrainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// SplitAtSentence splits text so that the head fits into limit runes, cutting
// at the last sentence boundary before the cap. The tail is empty when the
// whole text fits.
func SplitAtSentence(text string, limit int) (head, tail string) {
	runes := []rune(text)
	if len(runes) <= limit {
		return text, ""
	}

	cut := limit
	for i := limit - 1; i > 0; i-- {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			cut = i + 1
			break
		}
	}

	head = strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	tail = strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace)

	return head, tail
}
