package fieldfmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/text/language"
)

// Formatter applies directives to values. The zero value is not usable; build
// one with New. A Formatter holds no mutable state and may be shared.
type Formatter struct {
	loc     *time.Location
	symbols numberSymbols
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLocation sets the zone Timestamp values are rendered in. Without it the
// formatter reads time.Local on every call.
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) {
		f.loc = loc
	}
}

// WithLocale sets the decimal and grouping symbols used by number patterns.
func WithLocale(tag language.Tag) Option {
	return func(f *Formatter) {
		f.symbols = symbolsFor(tag)
	}
}

// New returns a Formatter with the given options applied.
func New(opts ...Option) *Formatter {
	f := &Formatter{symbols: defaultSymbols}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var std = New()

// Format parses directive, formats value with its pattern and aligns the
// result, using time.Local for timestamps and '.'/',' as number symbols.
func Format(value any, directive string) (string, error) {
	return std.Format(value, directive)
}

// Format parses directive, formats value with its pattern and aligns the result.
func (f *Formatter) Format(value any, directive string) (string, error) {
	d, err := Parse(directive)
	if err != nil {
		return "", err
	}
	return f.Apply(value, d)
}

// Apply formats value with an already parsed directive.
func (f *Formatter) Apply(value any, d Directive) (string, error) {
	text, err := f.ApplyPattern(value, d.Pattern)
	if err != nil {
		return "", err
	}
	return Align(text, d.Length, d.Alignment, d.PadToken), nil
}

// ApplyPattern formats value with pattern according to its kind. An empty
// pattern, or a value of KindOpaque, yields the value's default text.
func (f *Formatter) ApplyPattern(value any, pattern string) (string, error) {
	if pattern == "" {
		return f.Text(value), nil
	}
	switch KindOf(value) {
	case KindTimestamp:
		t := value.(Timestamp).Time().In(f.location())
		if strings.ContainsRune(pattern, '%') {
			return strftime.Format(pattern, t), nil
		}
		return formatDate(t, pattern, fieldAll)
	case KindNumber:
		return formatNumber(value, pattern, f.symbols)
	case KindDateTime:
		dt := value.(DateTime)
		return formatDate(clock(dt.Date, dt.Time), pattern, fieldDate|fieldTime)
	case KindDate:
		return formatDate(clock(value.(Date), TimeOfDay{}), pattern, fieldDate)
	case KindZonedDateTime:
		return formatDate(zonedTime(value), pattern, fieldAll)
	case KindTime:
		return formatDate(clock(Date{Year: 1970, Month: time.January, Day: 1}, value.(TimeOfDay)), pattern, fieldTime)
	default:
		return f.Text(value), nil
	}
}

// Text returns the default textual representation of value. Timestamps use
// the formatter's location; nil renders as the empty string.
func (f *Formatter) Text(value any) string {
	switch x := value.(type) {
	case nil:
		return ""
	case string:
		return x
	case Timestamp:
		return x.Time().In(f.location()).Format(timestampLayout)
	case time.Time:
		return x.Round(0).String()
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Round(0).String()
	}
	return fmt.Sprint(value)
}

func (f *Formatter) location() *time.Location {
	if f.loc == nil {
		return time.Local
	}
	return f.loc
}

func zonedTime(v any) time.Time {
	if p, ok := v.(*time.Time); ok {
		return *p
	}
	return v.(time.Time)
}

func formatDate(t time.Time, pattern string, has field) (string, error) {
	p, err := compileDatePattern(pattern)
	if err != nil {
		return "", err
	}
	return p.format(t, has)
}
