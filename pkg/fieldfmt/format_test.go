package fieldfmt

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func TestFormatReferenceScenarios(t *testing.T) {
	f := New(WithLocation(time.UTC))
	stamp := TimestampOf(time.Date(2018, 5, 24, 11, 5, 59, 0, time.UTC))
	local := DateTime{Date: Date{2018, time.May, 24}, Time: TimeOfDay{Hour: 11, Minute: 8, Second: 20}}
	zoned := time.Date(2018, 5, 24, 11, 8, 20, 0, time.FixedZone("CST", 8*3600))

	tests := []struct {
		name      string
		value     any
		directive string
		want      string
	}{
		{"LeftCustomToken", "foo value", "l=11&t=_&a=0", "foo value__"},
		{"RightCustomToken", "foo value", "l=12&t=_&a=1", "___foo value"},
		{"CenterEven", "foo value", "l=15&t=_&a=2", "___foo value___"},
		{"CenterOdd", "foo value", "l=14&t=_&a=2", "__foo value___"},
		{"LeftDefaultToken", "foo value", "l=11&a=0", "foo value  "},
		{"RightDefaultToken", "foo value", "l=12&a=1", "   foo value"},
		{"CenterEvenDefaultToken", "foo value", "l=15&a=2", "   foo value   "},
		{"CenterOddDefaultToken", "foo value", "l=14&a=2", "  foo value   "},
		{"SemicolonSeparatorLeft", "foo value", ";,l=11;t=_;a=0", "foo value__"},
		{"SemicolonSeparatorCenter", "foo value", ";,l=14;t=_;a=2", "__foo value___"},
		{"Decimal", decimal.RequireFromString("2.5"), "l=10&t=_&a=1&f=0.00", "______2.50"},
		{"FloatDecimal", 2.5, "l=10&t=_&a=1&f=0.00", "______2.50"},
		{"Integral", int64(123), "l=10&t=_&a=1&f=0.00", "____123.00"},
		{"Timestamp", stamp, "l=16&t=_&a=2&f=yyyyMMddHHmmss", "_20180524110559_"},
		{"LocalDateTime", local, "l=16&t=_&a=2&f=yyyyMMddHHmmss", "_20180524110820_"},
		{"ZonedDateTime", zoned, "l=16&t=_&a=2&f=yyyyMMddHHmmss", "_20180524110820_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Format(tt.value, tt.directive)
			if err != nil {
				t.Fatalf("Format(%v, %q) error = %v", tt.value, tt.directive, err)
			}
			if got != tt.want {
				t.Errorf("Format(%v, %q) = %q, want %q", tt.value, tt.directive, got, tt.want)
			}
		})
	}
}

func TestFormatDefaultLocationTimestamp(t *testing.T) {
	stamp := TimestampOf(time.Now())
	got, err := Format(stamp, "l=16&t=_&a=2&f=yyyyMMddHHmmss")
	if err != nil {
		t.Fatalf("Format error = %v", err)
	}
	if !regexp.MustCompile(`^_\d{14}_$`).MatchString(got) {
		t.Errorf("Format = %q, want _<14 digits>_", got)
	}
	want := "_" + stamp.Time().In(time.Local).Format("20060102150405") + "_"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatWithoutLengthIsEmpty(t *testing.T) {
	values := []any{"foo", 42, 3.14, TimestampOf(time.Now()), time.Now(), Date{2020, 1, 2}, struct{}{}, nil}
	for _, v := range values {
		for _, directive := range []string{"", "a=1", "t=_&a=2", "f=0.00", "a=9&t=xyz"} {
			got, err := Format(v, directive)
			if err != nil {
				t.Fatalf("Format(%v, %q) error = %v", v, directive, err)
			}
			if got != "" {
				t.Errorf("Format(%v, %q) = %q, want empty", v, directive, got)
			}
		}
	}
}

func TestFormatLengthInvariant(t *testing.T) {
	values := []any{"", "x", "foo value", "a much longer text than any length", "héllo wörld", 12345, 2.5}
	tokens := []string{"", " ", "_", "ab", "¤·"}
	for _, v := range values {
		for a := 0; a <= 2; a++ {
			for l := 0; l <= 20; l++ {
				for _, tok := range tokens {
					directive := fmt.Sprintf("l=%d&a=%d&t=%s", l, a, tok)
					got, err := Format(v, directive)
					if err != nil {
						t.Fatalf("Format(%v, %q) error = %v", v, directive, err)
					}
					if n := utf8.RuneCountInString(got); n != l {
						t.Fatalf("Format(%v, %q) = %q has %d characters, want %d", v, directive, got, n, l)
					}
				}
			}
		}
	}
}

func TestFormatSeparatorOverrideEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"l=11&t=_&a=0", ";,l=11;t=_;a=0"},
		{"l=14&t=_&a=2", "|,l=14|t=_|a=2"},
		{"l=10&t=_&a=1&f=0.00", "/,l=10/t=_/a=1/f=0.00"},
	}
	for _, p := range pairs {
		for _, v := range []any{"foo value", 2.5} {
			a, errA := Format(v, p[0])
			b, errB := Format(v, p[1])
			if errA != nil || errB != nil {
				t.Fatalf("Format errors: %v, %v", errA, errB)
			}
			if a != b {
				t.Errorf("Format(%v) %q = %q but %q = %q", v, p[0], a, p[1], b)
			}
		}
	}
}

func TestFormatFallbacks(t *testing.T) {
	type point struct{ X, Y int }

	t.Run("UnsupportedKindIgnoresPattern", func(t *testing.T) {
		got, err := Format(point{1, 2}, "l=5&f=0.00")
		if err != nil {
			t.Fatalf("Format error = %v", err)
		}
		if got != "{1 2}" {
			t.Errorf("Format = %q, want %q", got, "{1 2}")
		}
	})

	t.Run("StringIgnoresPattern", func(t *testing.T) {
		got, err := Format("2.5", "l=4&f=0.00")
		if err != nil {
			t.Fatalf("Format error = %v", err)
		}
		if got != "2.5 " {
			t.Errorf("Format = %q, want %q", got, "2.5 ")
		}
	})

	t.Run("UnknownAlignmentOnlyTruncates", func(t *testing.T) {
		got, _ := Format("foo value", "l=20&a=3&t=_")
		if got != "foo value" {
			t.Errorf("Format = %q, want %q", got, "foo value")
		}
		got, _ = Format("foo value", "l=3&a=-1")
		if got != "foo" {
			t.Errorf("Format = %q, want %q", got, "foo")
		}
	})

	t.Run("NilIsEmpty", func(t *testing.T) {
		got, _ := Format(nil, "l=3&t=*")
		if got != "***" {
			t.Errorf("Format = %q, want %q", got, "***")
		}
	})
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		value     any
		directive string
		want      error
	}{
		{"x", "l=3&bogus", ErrDirectiveSyntax},
		{"x", "l=three", ErrDirectiveValue},
		{"x", "a=center&l=3", ErrDirectiveValue},
		{42, "l=3&f=yyyy", ErrPattern},
		{Date{2020, 1, 2}, "l=3&f=HH", ErrPattern},
		{time.Now(), "l=3&f=bb", ErrPattern},
	}
	for _, tt := range tests {
		got, err := Format(tt.value, tt.directive)
		if !errors.Is(err, tt.want) {
			t.Errorf("Format(%v, %q) error = %v, want %v", tt.value, tt.directive, err, tt.want)
		}
		if got != "" {
			t.Errorf("Format(%v, %q) = %q on error, want empty", tt.value, tt.directive, got)
		}
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		text   string
		length int
		a      Alignment
		pad    string
		want   string
	}{
		{"foo value", 3, AlignLeft, "_", "foo"},
		{"foo value", 0, AlignCenter, "_", ""},
		{"foo value", 9, AlignRight, "_", "foo value"},
		{"foo value", 13, AlignLeft, "ab", "foo valueabab"},
		{"foo value", 13, AlignRight, "ab", "ababfoo value"},
		{"foo value", 14, AlignCenter, "xyz", "xyfoo valuexyz"},
		{"foo value", 12, AlignLeft, "", "foo value   "},
		{"héllo", 3, AlignLeft, "_", "hél"},
		{"héllo", 7, AlignRight, "·", "··héllo"},
		{"", 4, AlignCenter, "-=", "-=-="},
		{"ab", 5, AlignCenter, "*", "*ab**"},
		{"foo", 10, Alignment(5), "_", "foo"},
	}
	for _, tt := range tests {
		if got := Align(tt.text, tt.length, tt.a, tt.pad); got != tt.want {
			t.Errorf("Align(%q, %d, %d, %q) = %q, want %q", tt.text, tt.length, tt.a, tt.pad, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("日本語テキスト", 3); got != "日本語" {
		t.Errorf("Truncate = %q, want %q", got, "日本語")
	}
	if got := Truncate("abc", -2); got != "" {
		t.Errorf("Truncate negative = %q, want empty", got)
	}
	if got := Truncate("日本", 5); got != "日本" {
		t.Errorf("Truncate short = %q, want %q", got, "日本")
	}
}
