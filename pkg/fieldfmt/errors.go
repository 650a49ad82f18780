package fieldfmt

import "errors"

var (
	// ErrDirectiveSyntax reports a directive entry that has no '='.
	ErrDirectiveSyntax = errors.New("fieldfmt: malformed directive entry")

	// ErrDirectiveValue reports an 'a' or 'l' entry whose value is not a usable integer.
	ErrDirectiveValue = errors.New("fieldfmt: invalid directive value")

	// ErrPattern reports a format pattern the dispatched formatter cannot apply.
	ErrPattern = errors.New("fieldfmt: invalid format pattern")

	// ErrValue reports raw text that cannot be coerced into the requested kind.
	ErrValue = errors.New("fieldfmt: invalid value")
)
