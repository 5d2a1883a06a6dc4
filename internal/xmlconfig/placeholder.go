package xmlconfig

import (
	"strings"

	"github.com/gogf/gf/text/gregex"
)

var placeholderPattern = `\$\{([^}]+)\}`

// substitute replaces every `${name}` or `${name:default}` placeholder in s
// using props, falling back to the literal default when name is absent and
// leaving the placeholder untouched when neither is available.
func substitute(s string, props map[string]string) string {
	out, err := gregex.ReplaceStringFunc(placeholderPattern, s, func(match string) string {
		inner := match[2 : len(match)-1]
		name, def, hasDefault := splitDefault(inner)
		if v, ok := props[name]; ok {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
	if err != nil {
		return s
	}
	return out
}

func splitDefault(inner string) (name, def string, hasDefault bool) {
	idx := strings.IndexByte(inner, ':')
	if idx < 0 {
		return inner, "", false
	}
	return inner[:idx], inner[idx+1:], true
}
