package templating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/CTAG07/fieldfmt/pkg/presets"
)

// The functions in this file run inside Execute, which already holds the
// manager's read lock, so they read tm.config and tm.formatter directly.

// field formats value with a directive written inline in the template:
//
//	{{ .Price | field "l=10&t=_&a=1&f=0.00" }}
func (tm *TemplateManager) field(directive string, value any) (string, error) {
	d, err := fieldfmt.Parse(directive)
	if err != nil {
		return "", err
	}
	return tm.apply(value, d)
}

// preset formats value with the directive stored under name.
func (tm *TemplateManager) preset(name string, value any) (string, error) {
	if tm.presets == nil {
		return "", fmt.Errorf("%w: %q (no preset store configured)", presets.ErrNotFound, name)
	}
	ctx := context.Background()
	d, err := tm.presets.Directive(ctx, name)
	if errors.Is(err, presets.ErrNotFound) {
		names, _ := tm.presets.Names(ctx)
		return "", notFound(presets.ErrNotFound, name, names)
	}
	if err != nil {
		return "", err
	}
	return tm.apply(value, d)
}

func (tm *TemplateManager) apply(value any, d fieldfmt.Directive) (string, error) {
	if err := tm.checkLength(d.Length); err != nil {
		return "", err
	}
	return tm.formatter.Apply(value, d)
}

func (tm *TemplateManager) checkLength(length int) error {
	if limit := tm.config.MaxFieldLength; limit > 0 && length > limit {
		return fmt.Errorf("%w: field length %d is over %d", ErrLimitExceeded, length, limit)
	}
	return nil
}

// pad left-aligns the text of value in a field of length spaces.
func (tm *TemplateManager) pad(length int, value any) (string, error) {
	if err := tm.checkLength(length); err != nil {
		return "", err
	}
	return fieldfmt.Align(tm.formatter.Text(value), length, fieldfmt.AlignLeft, fieldfmt.DefaultPadToken), nil
}

// truncate cuts the text of value to at most length characters.
func (tm *TemplateManager) truncate(length int, value any) string {
	return fieldfmt.Truncate(tm.formatter.Text(value), length)
}

// numberf applies a number pattern without aligning. Values that are not
// already numbers, strings included, are converted to decimals first.
func (tm *TemplateManager) numberf(pattern string, value any) (string, error) {
	if fieldfmt.KindOf(value) != fieldfmt.KindNumber {
		d, err := fieldfmt.Decimal(value)
		if err != nil {
			return "", err
		}
		value = d
	}
	return tm.formatter.ApplyPattern(value, pattern)
}

// datef applies a date pattern without aligning. Strings are read as a zoned
// date-time, a local date-time, a date or a time, whichever parses first.
func (tm *TemplateManager) datef(pattern string, value any) (string, error) {
	if s, ok := value.(string); ok {
		v, err := coerceTemporal(s)
		if err != nil {
			return "", err
		}
		value = v
	}
	switch fieldfmt.KindOf(value) {
	case fieldfmt.KindNumber, fieldfmt.KindOpaque:
		return "", fmt.Errorf("%w: %T is not a date or time", fieldfmt.ErrValue, value)
	}
	return tm.formatter.ApplyPattern(value, pattern)
}

var temporalKinds = []fieldfmt.Kind{
	fieldfmt.KindZonedDateTime,
	fieldfmt.KindDateTime,
	fieldfmt.KindDate,
	fieldfmt.KindTime,
}

func coerceTemporal(s string) (any, error) {
	for _, kind := range temporalKinds {
		if v, err := fieldfmt.Coerce(kind, s); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a date or time", fieldfmt.ErrValue, s)
}

func asTimestamp(raw any) (any, error) { return asKind(fieldfmt.KindTimestamp, raw) }
func asDate(raw any) (any, error)      { return asKind(fieldfmt.KindDate, raw) }
func asDateTime(raw any) (any, error)  { return asKind(fieldfmt.KindDateTime, raw) }
func asTime(raw any) (any, error)      { return asKind(fieldfmt.KindTime, raw) }
func asZoned(raw any) (any, error)     { return asKind(fieldfmt.KindZonedDateTime, raw) }

func asDecimal(raw any) (any, error) {
	d, err := fieldfmt.Decimal(raw)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// asKind converts raw to kind. Values already of that kind pass through,
// time.Time values are projected onto the civil kinds, and anything else is
// read from its text.
func asKind(kind fieldfmt.Kind, raw any) (any, error) {
	if fieldfmt.KindOf(raw) == kind {
		return raw, nil
	}
	if t, ok := raw.(time.Time); ok {
		switch kind {
		case fieldfmt.KindTimestamp:
			return fieldfmt.TimestampOf(t), nil
		case fieldfmt.KindDate:
			return fieldfmt.DateOf(t), nil
		case fieldfmt.KindDateTime:
			return fieldfmt.DateTimeOf(t), nil
		case fieldfmt.KindTime:
			return fieldfmt.TimeOfDayOf(t), nil
		}
	}
	if s, ok := raw.(string); ok {
		return fieldfmt.Coerce(kind, s)
	}
	return fieldfmt.Coerce(kind, strings.TrimSpace(fmt.Sprint(raw)))
}
