package allowlist

import (
	"fmt"
	"regexp"
)

// Matches either a Postgres cast (::type, left untouched) or a named
// placeholder. RE2 has no lookbehind, so casts are consumed explicitly.
var placeholderRe = regexp.MustCompile(`::[a-z_]+|:[a-z_]+`)

// Rewrite converts a template's named placeholders to positional ones and
// returns the argument list in placeholder order. Repeated names reuse the
// same position.
func Rewrite(t *Template, params map[string]any) (string, []any, error) {
	positions := make(map[string]int)
	args := make([]any, 0, len(params))
	var missing string

	sql := placeholderRe.ReplaceAllStringFunc(t.SQL, func(m string) string {
		if len(m) > 1 && m[1] == ':' {
			return m // type cast, not a placeholder
		}
		name := m[1:]
		if pos, ok := positions[name]; ok {
			return fmt.Sprintf("$%d", pos)
		}
		value, ok := params[name]
		if !ok {
			missing = name
			return m
		}
		args = append(args, value)
		positions[name] = len(args)
		return fmt.Sprintf("$%d", len(args))
	})

	if missing != "" {
		return "", nil, &MissingParamError{QueryID: t.ID, Param: missing}
	}
	return sql, args, nil
}
