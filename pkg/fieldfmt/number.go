package fieldfmt

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/nfp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ratPrecision is the number of fractional digits kept when a *big.Rat is
// converted for formatting.
const ratPrecision = 32

// numberSymbols are the characters written for the decimal point and the
// grouping separator of a pattern.
type numberSymbols struct {
	decimal string
	group   string
}

var defaultSymbols = numberSymbols{decimal: ".", group: ","}

// symbolsFor derives the decimal and grouping symbols of a locale by printing
// a sample number with a localized printer.
func symbolsFor(tag language.Tag) numberSymbols {
	sample := []rune(message.NewPrinter(tag).Sprintf("%.1f", 1234.5))
	// Expected shape: 1<group>234<decimal>5
	if len(sample) < 6 {
		return defaultSymbols
	}
	syms := defaultSymbols
	syms.decimal = string(sample[len(sample)-2])
	if len(sample) == 7 {
		syms.group = string(sample[1])
	}
	return syms
}

// numberLayout is the digit layout of one pattern section.
type numberLayout struct {
	items     []nfp.Token
	intZeros  int
	fracZeros int
	fracHash  int
	grouping  int
	hasDigits bool
}

func compileNumberSection(sec nfp.Section) (numberLayout, error) {
	l := numberLayout{items: sec.Items}
	afterPoint := false
	sawGroup := false
	sinceGroup := 0
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeZeroPlaceHolder:
			l.hasDigits = true
			if afterPoint {
				l.fracZeros += len(tok.TValue)
			} else {
				l.intZeros += len(tok.TValue)
				sinceGroup += len(tok.TValue)
			}
		case nfp.TokenTypeHashPlaceHolder:
			l.hasDigits = true
			if afterPoint {
				l.fracHash += len(tok.TValue)
			} else {
				sinceGroup += len(tok.TValue)
			}
		case nfp.TokenTypeThousandsSeparator:
			if !afterPoint {
				sawGroup = true
				sinceGroup = 0
			}
		case nfp.TokenTypeDecimalPoint:
			if afterPoint {
				return l, fmt.Errorf("%w: more than one decimal point", ErrPattern)
			}
			afterPoint = true
		case nfp.TokenTypeLiteral:
		default:
			return l, fmt.Errorf("%w: unsupported %s token %q in number pattern", ErrPattern, tok.TType, tok.TValue)
		}
	}
	if !l.hasDigits {
		return l, fmt.Errorf("%w: number pattern has no digit placeholder", ErrPattern)
	}
	if sawGroup {
		l.grouping = sinceGroup
	}
	return l, nil
}

// numberSection is one ';'-separated part of a decimal pattern: literal text
// around a digit core, optionally followed by an exponent.
type numberSection struct {
	prefix     string
	suffix     string
	layout     numberLayout
	multiplier int64
	expDigits  int
}

const digitChars = "0#,."

// parseNumberSection splits src into prefix, digit core, exponent and suffix.
// Outside the core every character is literal except '%' and '‰', which
// also scale the value, and single quotes, which quote text ("''" is a quote).
func parseNumberSection(src string) (numberSection, error) {
	sec := numberSection{multiplier: 1}
	var prefix, core, suffix strings.Builder
	const (
		inPrefix = iota
		inCore
		inSuffix
	)
	phase := inPrefix
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if phase == inCore {
			if strings.ContainsRune(digitChars, r) {
				core.WriteRune(r)
				continue
			}
			phase = inSuffix
			if r == 'E' && i+1 < len(runes) && runes[i+1] == '0' {
				for i+1 < len(runes) && runes[i+1] == '0' {
					sec.expDigits++
					i++
				}
				continue
			}
		}
		out := &prefix
		if phase == inSuffix {
			out = &suffix
		}
		switch {
		case r == '\'':
			text, next, ok := readQuoted(runes, i)
			if !ok {
				return sec, fmt.Errorf("%w: unterminated quote in number pattern %q", ErrPattern, src)
			}
			out.WriteString(text)
			i = next
			continue
		case phase == inPrefix && strings.ContainsRune(digitChars, r):
			phase = inCore
			core.WriteRune(r)
			continue
		case r == '%':
			sec.multiplier = 100
		case r == '‰':
			sec.multiplier = 1000
		}
		out.WriteRune(r)
	}
	if core.Len() == 0 {
		return sec, fmt.Errorf("%w: number pattern %q has no digit placeholder", ErrPattern, src)
	}

	parser := nfp.NumberFormatParser()
	parsed := parser.Parse(core.String())
	if len(parsed) == 0 {
		return sec, fmt.Errorf("%w: empty number pattern %q", ErrPattern, src)
	}
	layout, err := compileNumberSection(parsed[0])
	if err != nil {
		return sec, err
	}
	if sec.expDigits > 0 {
		layout.grouping = 0
	}
	sec.layout = layout
	sec.prefix = prefix.String()
	sec.suffix = suffix.String()
	return sec, nil
}

// readQuoted reads the quoted text starting at runes[i] == '\''. It returns
// the text, the index of the closing quote and whether one was found.
func readQuoted(runes []rune, i int) (string, int, bool) {
	if i+1 < len(runes) && runes[i+1] == '\'' {
		return "'", i + 1, true
	}
	var b strings.Builder
	for j := i + 1; j < len(runes); j++ {
		if runes[j] != '\'' {
			b.WriteRune(runes[j])
			continue
		}
		if j+1 < len(runes) && runes[j+1] == '\'' {
			b.WriteRune('\'')
			j++
			continue
		}
		return b.String(), j, true
	}
	return "", 0, false
}

// splitPatternSections splits a decimal pattern on the ';' characters that
// are not inside quotes.
func splitPatternSections(pattern string) []string {
	var sections []string
	quoted := false
	start := 0
	for i, r := range pattern {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ';' && !quoted:
			sections = append(sections, pattern[start:i])
			start = i + 1
		}
	}
	return append(sections, pattern[start:])
}

// formatNumber applies a decimal pattern to a numeric value. A single section
// covers every value; with two or more sections the second one is used for
// negative values and supplies its own sign decoration.
func formatNumber(v any, pattern string, syms numberSymbols) (string, error) {
	d, special, err := toDecimal(v)
	if err != nil {
		return "", err
	}
	if special != "" {
		return special, nil
	}
	if pattern == "" {
		return "", fmt.Errorf("%w: empty number pattern", ErrPattern)
	}

	sections := splitPatternSections(pattern)
	src := sections[0]
	minus := d.IsNegative()
	if minus && len(sections) > 1 && sections[1] != "" {
		src = sections[1]
		minus = false
	}
	sec, err := parseNumberSection(src)
	if err != nil {
		return "", err
	}
	return sec.format(d, minus, syms), nil
}

func (s numberSection) format(d decimal.Decimal, minus bool, syms numberSymbols) string {
	abs := d.Abs()
	if s.multiplier != 1 {
		abs = abs.Mul(decimal.NewFromInt(s.multiplier))
	}
	var b strings.Builder
	if minus {
		b.WriteByte('-')
	}
	b.WriteString(s.prefix)
	if s.expDigits > 0 {
		b.WriteString(s.scientific(abs, syms))
	} else {
		b.WriteString(s.layout.render(abs, syms))
	}
	b.WriteString(s.suffix)
	return b.String()
}

// scientific renders abs as a mantissa with the pattern's minimum integer
// digits (at least one) followed by "E" and the exponent.
func (s numberSection) scientific(abs decimal.Decimal, syms numberSymbols) string {
	intDigits := max(s.layout.intZeros, 1)
	exp := 0
	if !abs.IsZero() {
		magnitude := len(abs.Coefficient().String()) + int(abs.Exponent())
		exp = magnitude - intDigits
		places := int32(s.layout.fracZeros + s.layout.fracHash)
		if abs.Shift(int32(-exp)).RoundBank(places).GreaterThanOrEqual(decimal.New(1, int32(intDigits))) {
			exp++
		}
	}

	var b strings.Builder
	b.WriteString(s.layout.render(abs.Shift(int32(-exp)), syms))
	b.WriteByte('E')
	if exp < 0 {
		b.WriteByte('-')
		exp = -exp
	}
	digits := strconv.Itoa(exp)
	if len(digits) < s.expDigits {
		b.WriteString(strings.Repeat("0", s.expDigits-len(digits)))
	}
	b.WriteString(digits)
	return b.String()
}

// render lays out the digits of a non-negative value.
func (l numberLayout) render(abs decimal.Decimal, syms numberSymbols) string {
	fixed := abs.StringFixedBank(int32(l.fracZeros + l.fracHash))
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	for len(fracPart) > l.fracZeros && strings.HasSuffix(fracPart, "0") {
		fracPart = fracPart[:len(fracPart)-1]
	}
	if intPart == "0" && l.intZeros == 0 {
		intPart = ""
	}
	if len(intPart) < l.intZeros {
		intPart = strings.Repeat("0", l.intZeros-len(intPart)) + intPart
	}
	if intPart == "" && fracPart == "" {
		intPart = "0"
	}
	if l.grouping > 0 {
		intPart = groupDigits(intPart, l.grouping, syms.group)
	}

	var b strings.Builder
	intDone, fracDone, afterPoint := false, false, false
	for _, tok := range l.items {
		switch tok.TType {
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		case nfp.TokenTypeDecimalPoint:
			if !intDone {
				b.WriteString(intPart)
				intDone = true
			}
			if fracPart != "" {
				b.WriteString(syms.decimal)
			}
			afterPoint = true
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder:
			if afterPoint && !fracDone {
				b.WriteString(fracPart)
				fracDone = true
			} else if !afterPoint && !intDone {
				b.WriteString(intPart)
				intDone = true
			}
		}
	}
	return b.String()
}

func groupDigits(digits string, size int, sep string) string {
	if len(digits) <= size {
		return digits
	}
	var b strings.Builder
	head := len(digits) % size
	if head == 0 {
		head = size
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += size {
		b.WriteString(sep)
		b.WriteString(digits[i : i+size])
	}
	return b.String()
}

// toDecimal converts a numeric value. Non-finite floats have no decimal form;
// they are returned as special text that bypasses the pattern.
func toDecimal(v any) (decimal.Decimal, string, error) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), "", nil
	case int8:
		return decimal.NewFromInt(int64(x)), "", nil
	case int16:
		return decimal.NewFromInt(int64(x)), "", nil
	case int32:
		return decimal.NewFromInt(int64(x)), "", nil
	case int64:
		return decimal.NewFromInt(x), "", nil
	case uint:
		return decimal.NewFromUint64(uint64(x)), "", nil
	case uint8:
		return decimal.NewFromUint64(uint64(x)), "", nil
	case uint16:
		return decimal.NewFromUint64(uint64(x)), "", nil
	case uint32:
		return decimal.NewFromUint64(uint64(x)), "", nil
	case uint64:
		return decimal.NewFromUint64(x), "", nil
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, strconv.FormatFloat(f, 'g', -1, 32), nil
		}
		return decimal.NewFromFloat32(x), "", nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, strconv.FormatFloat(x, 'g', -1, 64), nil
		}
		return decimal.NewFromFloat(x), "", nil
	case decimal.Decimal:
		return x, "", nil
	case json.Number:
		d, err := decimal.NewFromString(string(x))
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("%w: json number %q: %v", ErrValue, string(x), err)
		}
		return d, "", nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), "", nil
	case *big.Rat:
		return decimal.NewFromBigRat(x, ratPrecision), "", nil
	case *big.Float:
		if x.IsInf() {
			return decimal.Zero, x.String(), nil
		}
		d, err := decimal.NewFromString(x.Text('f', -1))
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("%w: big float %s: %v", ErrValue, x.String(), err)
		}
		return d, "", nil
	}
	return decimal.Zero, "", fmt.Errorf("%w: %T is not a number", ErrValue, v)
}

// Decimal converts any number kind value to an exact decimal. Strings are
// parsed as decimal literals. NaN and infinities cannot be represented and
// yield ErrValue.
func Decimal(v any) (decimal.Decimal, error) {
	if s, ok := v.(string); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q is not a decimal: %v", ErrValue, s, err)
		}
		return d, nil
	}
	d, special, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, err
	}
	if special != "" {
		return decimal.Zero, fmt.Errorf("%w: %s has no decimal form", ErrValue, special)
	}
	return d, nil
}
