package compose

import (
	"regexp"
	"strings"
)

// envNamePattern is the env-var name grammar used both for
// interpolation targets and for validating `environment:` keys later in
// the pipeline (spec.md §3, §4.1).
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsValidEnvName reports whether name matches the env-var name grammar.
func IsValidEnvName(name string) bool {
	return envNamePattern.MatchString(name)
}

// interpolationPattern matches ${NAME}, ${NAME:-DEFAULT} and $NAME.
// Capture groups: 2=braced name, 3=optional ":-DEFAULT" suffix, 4=its
// DEFAULT text, 5=bare name.
var interpolationPattern = regexp.MustCompile(`\$(\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Interpolate substitutes ${NAME}, ${NAME:-DEFAULT} and $NAME occurrences
// in text using env for lookups. A `$` not followed by a valid NAME
// (the pattern above only ever matches the env-var grammar) is left
// untouched rather than rejected, matching literal `$` usage that isn't
// a variable reference — so `$1BAD` passes through as-is instead of
// failing to parse. The error return is kept for interface symmetry
// with the rest of the parser pipeline; this function cannot currently
// fail.
func Interpolate(text string, env map[string]string) (string, error) {
	var buf strings.Builder
	last := 0
	for _, m := range interpolationPattern.FindAllSubmatchIndex([]byte(text), -1) {
		buf.WriteString(text[last:m[0]])
		last = m[1]

		var name, def string
		hasDefault := m[6] >= 0
		if m[4] >= 0 {
			name = text[m[4]:m[5]] // braced form: ${NAME} or ${NAME:-DEFAULT}
		} else {
			name = text[m[10]:m[11]] // bare form: $NAME
		}
		if hasDefault {
			def = text[m[8]:m[9]]
		}

		if v, ok := env[name]; ok {
			buf.WriteString(v)
		} else if hasDefault {
			buf.WriteString(def)
		}
		// else: empty string substitutes (absent, no default)
	}
	buf.WriteString(text[last:])
	return buf.String(), nil
}
