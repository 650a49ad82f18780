package fieldfmt

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the formatting-relevant category of a value. The order of the
// constants is the order in which patterns are dispatched.
type Kind int

const (
	KindOpaque Kind = iota
	KindTimestamp
	KindNumber
	KindDateTime
	KindDate
	KindZonedDateTime
	KindTime
)

var kindNames = map[Kind]string{
	KindOpaque:        "opaque",
	KindTimestamp:     "timestamp",
	KindNumber:        "number",
	KindDateTime:      "datetime",
	KindDate:          "date",
	KindZonedDateTime: "zoned",
	KindTime:          "time",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a kind by name. The empty string and "string" map to KindOpaque.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string", "opaque":
		return KindOpaque, nil
	case "timestamp":
		return KindTimestamp, nil
	case "number":
		return KindNumber, nil
	case "datetime":
		return KindDateTime, nil
	case "date":
		return KindDate, nil
	case "zoned":
		return KindZonedDateTime, nil
	case "time":
		return KindTime, nil
	}
	return KindOpaque, fmt.Errorf("unknown value kind %q", name)
}

// KindOf classifies v. Values of unlisted types are KindOpaque.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case Timestamp:
		return KindTimestamp
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal, json.Number:
		return KindNumber
	case *big.Int:
		return nonNil(x != nil, KindNumber)
	case *big.Float:
		return nonNil(x != nil, KindNumber)
	case *big.Rat:
		return nonNil(x != nil, KindNumber)
	case DateTime:
		return KindDateTime
	case Date:
		return KindDate
	case time.Time:
		return KindZonedDateTime
	case *time.Time:
		return nonNil(x != nil, KindZonedDateTime)
	case TimeOfDay:
		return KindTime
	}
	return KindOpaque
}

func nonNil(ok bool, k Kind) Kind {
	if ok {
		return k
	}
	return KindOpaque
}

// Timestamp is a legacy instant. Unlike time.Time it carries no zone of its
// own: it is rendered in the Formatter's location, which defaults to time.Local.
type Timestamp time.Time

// TimestampOf converts t into a Timestamp, dropping its location.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.UTC()) }

// Time returns the instant as a UTC time.Time.
func (ts Timestamp) Time() time.Time { return time.Time(ts).UTC() }

// timestampLayout is the default text of an instant. Unlike time.UnixDate it
// zero-pads the day of the month.
const timestampLayout = "Mon Jan 02 15:04:05 MST 2006"

// String formats the instant in the local zone, like "Fri May 04 11:05:59 CST 2018".
func (ts Timestamp) String() string { return time.Time(ts).In(time.Local).Format(timestampLayout) }

// Date is a calendar date without a time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date t falls on in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeOfDayOf returns the wall-clock time of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// String uses the shortest ISO-8601 form: "10:15", "10:15:30" or
// "10:15:30.120", with the fraction in groups of three digits.
func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	if t.Second == 0 && t.Nanosecond == 0 {
		return s
	}
	s += fmt.Sprintf(":%02d", t.Second)
	switch {
	case t.Nanosecond == 0:
	case t.Nanosecond%1_000_000 == 0:
		s += fmt.Sprintf(".%03d", t.Nanosecond/1_000_000)
	case t.Nanosecond%1_000 == 0:
		s += fmt.Sprintf(".%06d", t.Nanosecond/1_000)
	default:
		s += fmt.Sprintf(".%09d", t.Nanosecond)
	}
	return s
}

// DateTime is a calendar date and wall-clock time without a zone.
type DateTime struct {
	Date Date
	Time TimeOfDay
}

// DateTimeOf returns the date and time of t in t's location.
func DateTimeOf(t time.Time) DateTime {
	return DateTime{Date: DateOf(t), Time: TimeOfDayOf(t)}
}

func (dt DateTime) String() string {
	return dt.Date.String() + "T" + dt.Time.String()
}

// clock places civil fields on a UTC time.Time so they can be rendered.
// Callers only read the fields the kind actually has.
func clock(d Date, t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)
}
