package records

import (
	"fmt"
	"strings"
	"unicode"
)

// placeholderStyle renders the driver's positional placeholder for the n-th
// bound argument (1-based).
type placeholderStyle func(n int) string

// questionPlaceholders is the style used by sqlite and mysql.
func questionPlaceholders(int) string { return "?" }

// dollarPlaceholders is the style used by postgres.
func dollarPlaceholders(n int) string { return fmt.Sprintf("$%d", n) }

// placeholdersFor returns the placeholder style for a driver name.
func placeholdersFor(driverName string) placeholderStyle {
	if driverName == "postgres" {
		return dollarPlaceholders
	}
	return questionPlaceholders
}

// bindNamed rewrites :name parameters in a query into driver placeholders and
// collects the bound arguments in reference order. The SQL text itself is
// never parsed beyond what is needed to skip string literals, quoted
// identifiers, comments and postgres ::casts. A referenced name with no value
// in params is a caller error; unreferenced params are ignored.
func bindNamed(query string, params map[string]any, style placeholderStyle) (string, []any, error) {
	var (
		out  strings.Builder
		args []any
	)

	isNameRune := func(r byte) bool {
		return r == '_' || unicode.IsLetter(rune(r)) || unicode.IsDigit(rune(r))
	}

	for i := 0; i < len(query); {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			// Copy the quoted region verbatim, honoring doubled quotes.
			quote := ch
			out.WriteByte(ch)
			i++
			for i < len(query) {
				out.WriteByte(query[i])
				if query[i] == quote {
					if i+1 < len(query) && query[i+1] == quote {
						out.WriteByte(query[i+1])
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			// Line comment.
			for i < len(query) && query[i] != '\n' {
				out.WriteByte(query[i])
				i++
			}
		case ch == ':' && i+1 < len(query) && query[i+1] == ':':
			// Postgres cast, not a parameter.
			out.WriteString("::")
			i += 2
		case ch == ':' && i+1 < len(query) && isNameRune(query[i+1]):
			start := i + 1
			end := start
			for end < len(query) && isNameRune(query[end]) {
				end++
			}
			name := query[start:end]
			value, ok := params[name]
			if !ok {
				return "", nil, &ParameterError{Name: name}
			}
			args = append(args, value)
			out.WriteString(style(len(args)))
			i = end
		default:
			out.WriteByte(ch)
			i++
		}
	}

	return out.String(), args, nil
}
