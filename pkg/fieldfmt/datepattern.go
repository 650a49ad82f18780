package fieldfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// field is a bit set of the components a value carries.
type field uint8

const (
	fieldDate field = 1 << iota
	fieldTime
	fieldZone

	fieldAll = fieldDate | fieldTime | fieldZone
)

func (f field) String() string {
	var parts []string
	if f&fieldDate != 0 {
		parts = append(parts, "date")
	}
	if f&fieldTime != 0 {
		parts = append(parts, "time")
	}
	if f&fieldZone != 0 {
		parts = append(parts, "zone")
	}
	return strings.Join(parts, "+")
}

// letterSpec describes one pattern letter: the field it reads and the longest
// run of the letter that is meaningful.
type letterSpec struct {
	needs    field
	maxCount int
}

var patternLetters = map[rune]letterSpec{
	'G': {fieldDate, 5},
	'y': {fieldDate, 9},
	'u': {fieldDate, 9},
	'Y': {fieldDate, 9},
	'M': {fieldDate, 5},
	'L': {fieldDate, 5},
	'd': {fieldDate, 2},
	'D': {fieldDate, 3},
	'Q': {fieldDate, 4},
	'q': {fieldDate, 4},
	'w': {fieldDate, 2},
	'E': {fieldDate, 5},
	'a': {fieldTime, 1},
	'H': {fieldTime, 2},
	'k': {fieldTime, 2},
	'K': {fieldTime, 2},
	'h': {fieldTime, 2},
	'm': {fieldTime, 2},
	's': {fieldTime, 2},
	'S': {fieldTime, 9},
	'n': {fieldTime, 9},
	'z': {fieldZone, 4},
	'Z': {fieldZone, 5},
	'X': {fieldZone, 3},
	'x': {fieldZone, 3},
	'V': {fieldZone, 2},
}

// dateElem is either a run of one pattern letter or a literal.
type dateElem struct {
	letter  rune
	count   int
	literal string
}

// datePattern is a compiled date pattern.
type datePattern struct {
	elems []dateElem
	needs field
}

// compileDatePattern splits pattern into letter runs and literals. Letters
// are the ASCII letters; text between single quotes is literal and two single
// quotes produce one.
func compileDatePattern(pattern string) (datePattern, error) {
	var p datePattern
	runes := []rune(pattern)
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.elems = append(p.elems, dateElem{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				lit.WriteRune('\'')
				i++
				continue
			}
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] != '\'' {
					continue
				}
				if j+1 < len(runes) && runes[j+1] == '\'' {
					j++
					continue
				}
				end = j
				break
			}
			if end < 0 {
				return p, fmt.Errorf("%w: unterminated quote in %q", ErrPattern, pattern)
			}
			lit.WriteString(strings.ReplaceAll(string(runes[i+1:end]), "''", "'"))
			i = end
		case isASCIILetter(r):
			spec, ok := patternLetters[r]
			if !ok {
				return p, fmt.Errorf("%w: unknown pattern letter %q", ErrPattern, r)
			}
			n := 1
			for i+n < len(runes) && runes[i+n] == r {
				n++
			}
			if n > spec.maxCount {
				return p, fmt.Errorf("%w: too many pattern letters %q", ErrPattern, strings.Repeat(string(r), n))
			}
			if r == 'V' && n != 2 {
				return p, fmt.Errorf("%w: zone id must be written VV", ErrPattern)
			}
			flush()
			p.elems = append(p.elems, dateElem{letter: r, count: n})
			p.needs |= spec.needs
			i += n - 1
		case r == '[' || r == ']' || r == '{' || r == '}' || r == '#':
			return p, fmt.Errorf("%w: reserved character %q", ErrPattern, r)
		default:
			lit.WriteRune(r)
		}
	}
	flush()
	return p, nil
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// format renders t, which must carry every field in has.
func (p datePattern) format(t time.Time, has field) (string, error) {
	if missing := p.needs &^ has; missing != 0 {
		return "", fmt.Errorf("%w: pattern reads %s fields the value does not have", ErrPattern, missing)
	}
	var b strings.Builder
	for _, e := range p.elems {
		if e.letter == 0 {
			b.WriteString(e.literal)
			continue
		}
		b.WriteString(formatLetter(t, e.letter, e.count))
	}
	return b.String(), nil
}

func formatLetter(t time.Time, letter rune, n int) string {
	switch letter {
	case 'G':
		if t.Year() <= 0 {
			return "BC"
		}
		return "AD"
	case 'y', 'u':
		return formatYear(t.Year(), n)
	case 'Y':
		year, _ := t.ISOWeek()
		return formatYear(year, n)
	case 'M', 'L':
		return formatText(int(t.Month()), t.Month().String(), n)
	case 'd':
		return pad(t.Day(), n)
	case 'D':
		return pad(t.YearDay(), n)
	case 'Q', 'q':
		q := (int(t.Month())-1)/3 + 1
		switch {
		case n <= 2:
			return pad(q, n)
		case n == 3:
			return "Q" + strconv.Itoa(q)
		default:
			return ordinal(q) + " quarter"
		}
	case 'w':
		_, week := t.ISOWeek()
		return pad(week, n)
	case 'E':
		name := t.Weekday().String()
		switch {
		case n <= 3:
			return name[:3]
		case n == 4:
			return name
		default:
			return name[:1]
		}
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case 'H':
		return pad(t.Hour(), n)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, n)
	case 'K':
		return pad(t.Hour()%12, n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'S':
		frac := fmt.Sprintf("%09d", t.Nanosecond())
		return frac[:n]
	case 'n':
		return pad(t.Nanosecond(), n)
	case 'z':
		return t.Format("MST")
	case 'Z':
		_, off := t.Zone()
		switch {
		case n <= 3:
			return formatOffset(off, false, true)
		case n == 4:
			if off == 0 {
				return "GMT"
			}
			return "GMT" + formatOffset(off, true, true)
		default:
			if off == 0 {
				return "Z"
			}
			return formatOffset(off, true, true)
		}
	case 'X', 'x':
		_, off := t.Zone()
		if letter == 'X' && off == 0 {
			return "Z"
		}
		switch n {
		case 1:
			if off%3600 == 0 {
				return formatOffset(off, false, false)
			}
			return formatOffset(off, false, true)
		case 2:
			return formatOffset(off, false, true)
		default:
			return formatOffset(off, true, true)
		}
	case 'V':
		return t.Location().String()
	}
	return ""
}

func formatYear(year, n int) string {
	if n == 2 {
		y := year % 100
		if y < 0 {
			y = -y
		}
		return pad(y, 2)
	}
	return pad(year, n)
}

// formatText renders a numeric field for one or two letters, an abbreviation
// for three, the full name for four and the initial for five.
func formatText(num int, name string, n int) string {
	switch {
	case n <= 2:
		return pad(num, n)
	case n == 3:
		return name[:3]
	case n == 4:
		return name
	default:
		return name[:1]
	}
}

func formatOffset(seconds int, colon, minutes bool) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	h, m := seconds/3600, seconds%3600/60
	switch {
	case !minutes:
		return fmt.Sprintf("%c%02d", sign, h)
	case colon:
		return fmt.Sprintf("%c%02d:%02d", sign, h, m)
	default:
		return fmt.Sprintf("%c%02d%02d", sign, h, m)
	}
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if neg {
		return "-" + s
	}
	return s
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return strconv.Itoa(n) + "th"
}
