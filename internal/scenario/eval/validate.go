package eval

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate rejects anything beyond comparisons and boolean logic over plain
// variables and literals: no member access, arithmetic or function calls.
func Validate(cond string) error {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil
	}

	illegalChars := []rune{'{', '}', '[', ']', ';', ':', '?', '@', '#', '$', '\\'}
	for _, ch := range illegalChars {
		if strings.ContainsRune(cond, ch) {
			return fmt.Errorf("illegal character %q", ch)
		}
	}

	inQuotes := byte(0)
	for i := 0; i < len(cond); i++ {
		c := cond[i]
		if inQuotes != 0 {
			if c == inQuotes {
				inQuotes = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inQuotes = c
		case '.':
			if !(isDigitAt(cond, i-1) && isDigitAt(cond, i+1)) {
				return fmt.Errorf("dot access is not allowed")
			}
		case '-':
			if !isUnaryMinus(cond, i) {
				return fmt.Errorf("arithmetic operator %q is not allowed", string(c))
			}
		case '+', '*', '/', '%':
			return fmt.Errorf("arithmetic operator %q is not allowed", string(c))
		case '(':
			if ident := identBefore(cond, i); ident != "" {
				return fmt.Errorf("function calls are not allowed (found %q(...))", ident)
			}
		}
	}

	return nil
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}

// isUnaryMinus accepts a minus that starts a numeric literal right after an
// operator, an opening parenthesis or the start of the condition.
func isUnaryMinus(s string, i int) bool {
	if !isDigitAt(s, i+1) {
		return false
	}
	j := i - 1
	for j >= 0 && unicode.IsSpace(rune(s[j])) {
		j--
	}
	if j < 0 {
		return true
	}
	return strings.ContainsRune("=<>!&|(", rune(s[j]))
}

func identBefore(s string, i int) string {
	j := i - 1
	for j >= 0 && unicode.IsSpace(rune(s[j])) {
		j--
	}
	if j < 0 || !(unicode.IsLetter(rune(s[j])) || s[j] == '_') && !unicode.IsDigit(rune(s[j])) {
		return ""
	}
	k := j
	for k >= 0 && (unicode.IsLetter(rune(s[k])) || unicode.IsDigit(rune(s[k])) || s[k] == '_') {
		k--
	}
	ident := s[k+1 : j+1]
	if ident == "" || unicode.IsDigit(rune(ident[0])) {
		return ""
	}
	switch ident {
	case "and", "or", "not", "in":
		return ""
	}
	return ident
}
