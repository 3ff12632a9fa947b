package query

import "strings"

const reserved = `+-!(){}[]\^"~*?:`

// Escape prefixes every reserved query character of s with a backslash
// and escapes the boolean operators "&&" and "||".
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case strings.ContainsRune(reserved, r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case (r == '&' || r == '|') && i+1 < len(runes) && runes[i+1] == r:
			sb.WriteByte('\\')
			sb.WriteRune(r)
			sb.WriteByte('\\')
			sb.WriteRune(r)
			i++
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
