package naming

import (
	"regexp"
	"strings"
)

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', ' ', '.', '/':
		return true
	}
	return false
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Split breaks an identifier into lowercase words. Word boundaries are
// separator runes, lower-to-upper and digit-to-upper transitions, and the end
// of an acronym run: "HTTPServer" splits into "http", "server".
func Split(s string) []string {
	var words []string
	runes := []rune(s)
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isSeparator(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			last := cur[len(cur)-1]
			switch {
			case isUpper(r) && (isLower(last) || isDigit(last)):
				flush()
			case isUpper(last) && isUpper(r) && i+1 < len(runes) && isLower(runes[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return words
}

// Snake converts an identifier to snake_case.
func Snake(s string) string {
	return strings.Join(Split(s), "_")
}

// Kebab converts an identifier to kebab-case.
func Kebab(s string) string {
	return strings.Join(Split(s), "-")
}

// Camel converts an identifier to camelCase.
func Camel(s string) string {
	words := Split(s)
	for i := 1; i < len(words); i++ {
		words[i] = title(words[i])
	}
	return strings.Join(words, "")
}

// Pascal converts an identifier to PascalCase.
func Pascal(s string) string {
	words := Split(s)
	for i := range words {
		words[i] = title(words[i])
	}
	return strings.Join(words, "")
}

func title(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"mouse":  "mice",
	"goose":  "geese",
	"foot":   "feet",
	"tooth":  "teeth",
	"datum":  "data",
}

var uncountable = map[string]bool{
	"data":      true,
	"info":      true,
	"series":    true,
	"species":   true,
	"news":      true,
	"equipment": true,
}

// Pluralize returns the identifier with its last word pluralized, joined in
// snake_case. Callers pass canonical snake_case names and re-case the result.
func Pluralize(s string) string {
	words := Split(s)
	if len(words) == 0 {
		return s
	}
	words[len(words)-1] = pluralWord(words[len(words)-1])
	return strings.Join(words, "_")
}

func pluralWord(w string) string {
	if uncountable[w] {
		return w
	}
	if p, ok := irregularPlurals[w]; ok {
		return p
	}
	switch {
	case strings.HasSuffix(w, "s"), strings.HasSuffix(w, "x"), strings.HasSuffix(w, "z"),
		strings.HasSuffix(w, "ch"), strings.HasSuffix(w, "sh"):
		return w + "es"
	case strings.HasSuffix(w, "y") && len(w) > 1 && !isVowel(rune(w[len(w)-2])):
		return w[:len(w)-1] + "ies"
	case strings.HasSuffix(w, "fe"):
		return w[:len(w)-2] + "ves"
	case strings.HasSuffix(w, "f") && !strings.HasSuffix(w, "ff"):
		return w[:len(w)-1] + "ves"
	default:
		return w + "s"
	}
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

var (
	snakeRe  = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)
	kebabRe  = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	camelRe  = regexp.MustCompile(`^[a-z][a-z0-9]*([A-Z]+[a-z0-9]*)*$`)
	pascalRe = regexp.MustCompile(`^([A-Z]+[a-z0-9]*)+$`)
)

// IsSnake reports whether s is strict snake_case: no leading digit, no
// leading, trailing or doubled underscores.
func IsSnake(s string) bool { return snakeRe.MatchString(s) }

// IsKebab reports whether s is strict kebab-case.
func IsKebab(s string) bool { return kebabRe.MatchString(s) }

// IsCamel reports whether s is camelCase. Acronym runs ("userID") are allowed.
func IsCamel(s string) bool { return camelRe.MatchString(s) }

// IsPascal reports whether s is PascalCase. Acronym runs are allowed.
func IsPascal(s string) bool { return pascalRe.MatchString(s) }

// Check dispatches to the checker for the named style. Unknown styles never
// match.
func Check(style, s string) bool {
	switch style {
	case "snake":
		return IsSnake(s)
	case "kebab":
		return IsKebab(s)
	case "camel":
		return IsCamel(s)
	case "pascal":
		return IsPascal(s)
	}
	return false
}
