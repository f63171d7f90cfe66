package tool

import (
	"fmt"
	"strings"
)

// SplitWords splits a command string into a program and arguments using
// shell-like word splitting. Single quotes, double quotes, and backslash
// escapes are honored; no shell interpretation happens beyond that (no
// globbing, pipes, or variable expansion), so "$HOME" and "*" stay literal.
func SplitWords(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false

	flush := func() {
		if inWord {
			words = append(words, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n':
			flush()
		case '\\':
			inWord = true
			if i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else {
				cur.WriteByte(c)
			}
		case '\'':
			inWord = true
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unbalanced single quote")
			}
			cur.WriteString(s[i+1 : i+1+end])
			i += end + 1
		case '"':
			inWord = true
			i++
			closed := false
			for ; i < len(s); i++ {
				if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
					i++
					cur.WriteByte(s[i])
					continue
				}
				if s[i] == '"' {
					closed = true
					break
				}
				cur.WriteByte(s[i])
			}
			if !closed {
				return nil, fmt.Errorf("unbalanced double quote")
			}
		default:
			inWord = true
			cur.WriteByte(c)
		}
	}
	flush()
	return words, nil
}
