// Package dump — value decoding.
// Turns one field token taken from a VALUES tuple into a typed scalar.
package dump

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnterminatedString is returned for a quoted value whose closing quote is
// missing or escaped away.
var ErrUnterminatedString = errors.New("unterminated string")

// ErrEmptyValue is returned for an empty field (e.g. "(1,,2)").
var ErrEmptyValue = errors.New("empty value")

// Kind distinguishes decoded scalar values.
type Kind uint8

// Kind values. The zero Value is NULL.
const (
	KindNull Kind = iota
	KindString
	KindLiteral
)

// Value is a decoded scalar from an INSERT tuple.
type Value struct {
	Kind Kind
	Text string // decoded text for strings, raw text for literals
}

// Null returns the NULL value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Text: s} }

// Literal returns an unquoted literal value (numbers, keywords).
func Literal(s string) Value { return Value{Kind: KindLiteral, Text: s} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String returns the value text; NULL renders as "".
func (v Value) String() string {
	if v.Kind == KindNull {
		return ""
	}
	return v.Text
}

// Int interprets the value as a base-10 integer. Quoted numbers are accepted
// since some dumps quote every column.
func (v Value) Int() (int64, bool) {
	if v.Kind == KindNull {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool interprets the value as a MySQL boolean (tinyint or true/false).
func (v Value) Bool() (bool, bool) {
	if n, ok := v.Int(); ok {
		return n != 0, true
	}
	switch strings.ToLower(strings.TrimSpace(v.Text)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Decode turns one raw value token into a Value.
//
//   - 'quoted' or "quoted": outer quotes stripped, backslash and doubled-quote
//     escapes undone, then HTML entities decoded. Result is a string.
//   - NULL (any case, unquoted): the NULL value.
//   - anything else: passed through as a literal.
func Decode(token string) (Value, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Value{}, ErrEmptyValue
	}

	q := token[0]
	if q == '\'' || q == '"' {
		if len(token) < 2 || token[len(token)-1] != q {
			return Value{}, fmt.Errorf("%w: %s", ErrUnterminatedString, preview(token))
		}
		s, err := unescape(token[1:len(token)-1], q)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", err, preview(token))
		}
		return String(html.UnescapeString(s)), nil
	}

	if strings.EqualFold(token, "NULL") {
		return Null(), nil
	}
	return Literal(token), nil
}

// unescape undoes MySQL string escapes inside a quoted value body.
// A lone quote character or a trailing backslash means the string was not
// properly terminated.
func unescape(s string, quote byte) (string, error) {
	if strings.IndexByte(s, '\\') < 0 && strings.IndexByte(s, quote) < 0 {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return "", ErrUnterminatedString
			}
			i++
			b.WriteString(escapeSeq(s[i]))
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				b.WriteByte(quote)
				i++
				continue
			}
			return "", ErrUnterminatedString
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// escapeSeq maps the character after a backslash to its decoded text.
func escapeSeq(c byte) string {
	switch c {
	case '0':
		return "\x00"
	case 'b':
		return "\b"
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case 'Z':
		return "\x1a"
	case '%', '_':
		// MySQL keeps the backslash for LIKE wildcards.
		return "\\" + string(c)
	default:
		return string(c)
	}
}

// preview shortens a token for warning messages.
func preview(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
