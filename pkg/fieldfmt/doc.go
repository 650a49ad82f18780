/*
Package fieldfmt renders a single template value according to a compact field
directive such as "l=12&t=_&a=1&f=0.00".

A directive is a list of key=value entries joined by a separator (default '&').
A leading "<sep>," segment selects another separator, so ";,l=11;t=_;a=0" is the
same directive written with ';'. The recognized keys are:

	a  alignment: 0 left, 1 right, 2 center (any other number disables padding)
	f  format pattern, interpreted according to the kind of the value
	l  target length in characters; the text is truncated to it, then padded
	t  pad token, repeated and sliced to fill the gap (default a single space)

Values are classified into a closed set of kinds (see Kind). Timestamps and the
civil date/time kinds use Java-style pattern letters ("yyyyMMddHHmmss"),
timestamps additionally accept strftime patterns ("%Y-%m-%d"), and numbers use
decimal patterns ("#,##0.00"). A pattern given for any other value is ignored.

A decimal pattern is literal text around a digit core of '0', '#', ',' and
'.', optionally followed by an exponent ("0.###E0"). Text may be quoted with
single quotes, "''" is a quote, and '%' or '‰' in the text scales the value.
A second ';'-separated section formats negative values. Numbers are rounded
half-even. Floats are first converted to their shortest decimal form, so
12.345 with "0.0#" gives "12.34" even though the nearest float is slightly
above 12.345.

The separator and '=' cannot appear inside a value; there is no escaping.

All functions are safe for concurrent use. A Formatter is immutable once built.
*/
package fieldfmt
