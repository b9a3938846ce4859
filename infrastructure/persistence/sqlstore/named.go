package sqlstore

import (
	"fmt"
	"strings"
)

// MissingParamError names a :param the statement uses but the caller did not bind
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("no value bound for parameter :%s", e.Name)
}

// bindNamed rewrites :name parameters into positional placeholders and returns the
// arguments in placeholder order. Quoted strings, quoted identifiers, line comments
// and :: casts are copied untouched. With reuse, repeated names share one placeholder.
func bindNamed(statement string, params map[string]interface{}, placeholder func(n int) string, reuse bool) (string, []interface{}, error) {
	var (
		b     strings.Builder
		args  []interface{}
		index = make(map[string]int)
	)
	b.Grow(len(statement) + 8)

	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(statement, i)
			b.WriteString(statement[i:end])
			i = end - 1
		case c == '-' && i+1 < len(statement) && statement[i+1] == '-':
			end := strings.IndexByte(statement[i:], '\n')
			if end < 0 {
				end = len(statement) - i
			}
			b.WriteString(statement[i : i+end])
			i += end - 1
		case c == ':' && i+1 < len(statement) && statement[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':' && i+1 < len(statement) && isNameStart(statement[i+1]):
			j := i + 1
			for j < len(statement) && isNamePart(statement[j]) {
				j++
			}
			name := statement[i+1 : j]
			value, ok := params[name]
			if !ok {
				return "", nil, &MissingParamError{Name: name}
			}
			if n, seen := index[name]; seen && reuse {
				b.WriteString(placeholder(n))
			} else {
				args = append(args, value)
				index[name] = len(args)
				b.WriteString(placeholder(len(args)))
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), args, nil
}

// closingQuote returns the index just past the quote that closes the one at start.
// A doubled quote is an escaped quote.
func closingQuote(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
