package templating

import (
	"fmt"
	"time"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"golang.org/x/text/language"
)

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// Location is the IANA zone that timestamps are rendered in. Empty or
	// "Local" uses the host zone.
	Location string `json:"location"`

	// Locale is a BCP 47 tag selecting the decimal and grouping symbols of
	// number patterns. Empty keeps '.' and ','.
	Locale string `json:"locale"`

	// MaxFieldLength is the largest field length a template may request.
	// Directives asking for more are rejected so a template cannot allocate
	// arbitrarily large padding.
	MaxFieldLength int `json:"max_field_length"`

	// MaxRepeat caps the count accepted by the repeat function.
	MaxRepeat int `json:"max_repeat"`

	// MaxTemplateBytes is the largest template body accepted for string
	// execution and file uploads.
	MaxTemplateBytes int64 `json:"max_template_bytes"`
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		Location:         "Local",
		Locale:           "",
		MaxFieldLength:   4096,
		MaxRepeat:        10_000,
		MaxTemplateBytes: 1 << 20, // 1MB
	}
}

// FormatterOptions turns the location and locale settings into fieldfmt options.
func (c *TemplateConfig) FormatterOptions() ([]fieldfmt.Option, error) {
	var opts []fieldfmt.Option
	switch c.Location {
	case "", "Local":
	default:
		loc, err := time.LoadLocation(c.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid location %q: %w", c.Location, err)
		}
		opts = append(opts, fieldfmt.WithLocation(loc))
	}
	if c.Locale != "" {
		tag, err := language.Parse(c.Locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", c.Locale, err)
		}
		opts = append(opts, fieldfmt.WithLocale(tag))
	}
	return opts, nil
}
