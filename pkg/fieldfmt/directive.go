package fieldfmt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Alignment selects where padding goes when text is shorter than the target length.
type Alignment int

const (
	AlignLeft   Alignment = 0
	AlignRight  Alignment = 1
	AlignCenter Alignment = 2
)

// DefaultSeparator delimits directive entries unless a "<sep>," prefix overrides it.
const DefaultSeparator = '&'

// DefaultPadToken is used when a directive has no 't' entry.
const DefaultPadToken = " "

// Directive holds the parsed formatting instructions for one field.
type Directive struct {
	Separator rune
	Alignment Alignment
	Length    int
	PadToken  string
	// Pattern is empty when the directive has no 'f' entry.
	Pattern string
}

// Parse parses a raw directive. Entries are split on the separator and then on
// their first '='. Unknown keys are ignored and later entries override earlier
// ones. Empty entries, such as the one left by a trailing separator, are skipped.
func Parse(text string) (Directive, error) {
	d := Directive{
		Separator: DefaultSeparator,
		Alignment: AlignLeft,
		PadToken:  DefaultPadToken,
	}

	body := text
	// A comma at index 0 has no separator character in front of it, so it is
	// treated as part of the body.
	if pos := strings.IndexByte(text, ','); pos > 0 {
		d.Separator, _ = utf8.DecodeRuneInString(text[:pos])
		body = text[pos+1:]
	}

	for _, entry := range strings.Split(body, string(d.Separator)) {
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return Directive{}, fmt.Errorf("%w: %q has no '='", ErrDirectiveSyntax, entry)
		}
		switch key {
		case "a":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Directive{}, fmt.Errorf("%w: alignment %q is not an integer", ErrDirectiveValue, value)
			}
			d.Alignment = Alignment(n)
		case "f":
			d.Pattern = value
		case "l":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Directive{}, fmt.Errorf("%w: length %q is not an integer", ErrDirectiveValue, value)
			}
			if n < 0 {
				return Directive{}, fmt.Errorf("%w: length %d is negative", ErrDirectiveValue, n)
			}
			d.Length = n
		case "t":
			d.PadToken = value
		}
	}
	return d, nil
}

// String renders the directive back into its '&'-separated form. Keys are
// written in a fixed order; the pattern is omitted when empty.
func (d Directive) String() string {
	sep := d.Separator
	if sep == 0 {
		sep = DefaultSeparator
	}
	var b strings.Builder
	if sep != DefaultSeparator {
		b.WriteRune(sep)
		b.WriteByte(',')
	}
	fmt.Fprintf(&b, "l=%d%ca=%d%ct=%s", d.Length, sep, int(d.Alignment), sep, d.PadToken)
	if d.Pattern != "" {
		fmt.Fprintf(&b, "%cf=%s", sep, d.Pattern)
	}
	return b.String()
}
