// Package prompt fills {{key}} placeholders in seed prompt text.
package prompt

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Expand replaces every {{key}} whose key is present in params with the
// mapped value. Unknown keys, malformed placeholders and unterminated braces
// are copied through unchanged. Substituted values are not scanned again.
func Expand(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, openDelim) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	scan(text, func(literal, key string) {
		if key == "" {
			b.WriteString(literal)
			return
		}
		if v, ok := params[key]; ok {
			b.WriteString(v)
			return
		}
		b.WriteString(literal)
	})
	return b.String()
}

// Placeholders lists the distinct keys referenced by text, in the order they
// first appear.
func Placeholders(text string) []string {
	var keys []string
	seen := map[string]struct{}{}
	scan(text, func(_, key string) {
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	})
	return keys
}

// Unresolved returns the placeholders of text that params does not cover.
func Unresolved(text string, params map[string]string) []string {
	var missing []string
	for _, k := range Placeholders(text) {
		if _, ok := params[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// scan walks text once and reports it as a sequence of pieces. Each piece is
// either plain text (key empty) or a well-formed placeholder with its key.
func scan(text string, emit func(literal, key string)) {
	for len(text) > 0 {
		i := strings.Index(text, openDelim)
		if i < 0 {
			emit(text, "")
			return
		}
		if i > 0 {
			emit(text[:i], "")
			text = text[i:]
		}
		rest := text[len(openDelim):]
		j := strings.Index(rest, closeDelim)
		if j < 0 {
			emit(text, "")
			return
		}
		if key := rest[:j]; isKey(key) {
			emit(text[:len(openDelim)+j+len(closeDelim)], key)
			text = rest[j+len(closeDelim):]
			continue
		}
		// Not a placeholder here; emit one brace and rescan so that
		// "{{{key}}}" still resolves its inner placeholder.
		emit(text[:1], "")
		text = text[1:]
	}
}

func isKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
