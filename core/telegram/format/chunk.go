// Package format prepares outbound message text.
package format

import "unicode/utf8"

// MessageLimit is the longest text sent as a single message. Telegram allows
// 4096 characters; the margin absorbs entity expansion.
const MessageLimit = 4000

// Split cuts text into consecutive pieces of at most limit characters. The cut
// falls at the exact character boundary, never at a word or tag boundary, and
// concatenating the pieces yields text again. Text within the limit is returned
// as a single piece.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end, n := 0, 0
		for end < len(text) && n < limit {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
			n++
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
