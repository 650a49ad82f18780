package fieldfmt

import (
	"strings"
	"unicode/utf8"
)

// Truncate caps text at length characters.
func Truncate(text string, length int) string {
	if length <= 0 {
		return ""
	}
	// Counting bytes first keeps the common ASCII case allocation free.
	if len(text) <= length {
		return text
	}
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	return string(runes[:length])
}

// Align truncates text to length characters and pads it according to a.
// For AlignLeft, AlignRight and AlignCenter the result has exactly length
// characters. Any other alignment returns the truncated text without padding.
func Align(text string, length int, a Alignment, pad string) string {
	text = Truncate(text, length)
	diff := length - utf8.RuneCountInString(text)
	switch a {
	case AlignLeft:
		return text + padding(pad, diff)
	case AlignRight:
		return padding(pad, diff) + text
	case AlignCenter:
		// The odd character goes to the right.
		left := diff / 2
		return padding(pad, left) + text + padding(pad, diff-left)
	default:
		return text
	}
}

// padding returns n characters of token repeated from its start.
// An empty token pads with spaces.
func padding(token string, n int) string {
	if n <= 0 {
		return ""
	}
	if token == "" {
		token = DefaultPadToken
	}
	runes := []rune(token)
	if len(runes) == 1 {
		return strings.Repeat(token, n)
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[i%len(runes)]
	}
	return string(out)
}
