package fieldfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	dateTimeLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	timeLayouts = []string{
		"15:04:05.999999999",
		"15:04",
	}
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		time.RFC1123Z,
		time.UnixDate,
	}
)

// Coerce builds a value of the given kind from text. Timestamps accept
// RFC 3339 or Unix seconds, numbers are parsed as exact decimals, and the
// civil kinds accept ISO-8601 forms. KindOpaque returns raw unchanged.
func Coerce(kind Kind, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch kind {
	case KindOpaque:
		return raw, nil
	case KindTimestamp:
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return TimestampOf(time.Unix(secs, 0)), nil
		}
		t, err := parseFirst(s, zonedLayouts)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return TimestampOf(t), nil
	case KindNumber:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return d, nil
	case KindDateTime:
		t, err := parseFirst(s, dateTimeLayouts)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return DateTimeOf(t), nil
	case KindDate:
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return DateOf(t), nil
	case KindZonedDateTime:
		t, err := parseFirst(s, zonedLayouts)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return t, nil
	case KindTime:
		t, err := parseFirst(s, timeLayouts)
		if err != nil {
			return nil, coerceErr(kind, raw, err)
		}
		return TimeOfDayOf(t), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %s", ErrValue, kind)
}

func parseFirst(s string, layouts []string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func coerceErr(kind Kind, raw string, err error) error {
	return fmt.Errorf("%w: cannot read %q as %s: %v", ErrValue, raw, kind, err)
}
