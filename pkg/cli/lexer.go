package cli

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokError tokenKind = iota
	tokEOF
	tokIdentifier
	tokString
)

type token struct {
	kind  tokenKind
	value string
	line  int
}

// Mutable
type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{
		input: input,
		line:  1,
	}
}

func (l *lexer) nextToken() token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.input) {
		return token{kind: tokEOF, line: l.line}
	}

	b := l.input[l.pos]

	if b == '"' {
		return l.readString()
	}

	if isAlpha(b) {
		return l.readIdentifier()
	}

	l.pos++
	return token{kind: tokError, value: fmt.Sprintf("unexpected character: %c", b), line: l.line}
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\n':
			l.line++
			l.pos++
		case ' ', '\t', '\r', '\f', '\v':
			l.pos++
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) readIdentifier() token {
	start := l.pos
	for l.pos < len(l.input) {
		b := l.input[l.pos]
		if isAlphaNumeric(b) || b == '_' || b == '-' {
			l.pos++
		} else {
			break
		}
	}
	return token{kind: tokIdentifier, value: l.input[start:l.pos], line: l.line}
}

func (l *lexer) readString() token {
	l.pos++
	if l.pos+1 < len(l.input) && l.input[l.pos] == '"' && l.input[l.pos+1] == '"' {
		l.pos += 2
		return l.readMultilineString()
	}
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		if l.input[l.pos] == '\n' {
			return token{kind: tokError, value: "newline in string", line: l.line}
		}
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokError, value: "unterminated string", line: l.line}
	}
	val := l.input[start:l.pos]
	l.pos++
	return token{kind: tokString, value: val, line: l.line}
}

func (l *lexer) readMultilineString() token {
	start, line := l.pos, l.line
	for l.pos+2 < len(l.input) {
		if l.input[l.pos] == '"' && l.input[l.pos+1] == '"' && l.input[l.pos+2] == '"' {
			val := l.input[start:l.pos]
			l.pos += 3
			return token{kind: tokString, value: dedent(val), line: line}
		}
		if l.input[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	return token{kind: tokError, value: "unterminated multiline string", line: line}
}

// dedent drops leading and trailing blank lines and indents every
// remaining line by two spaces.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	var sb strings.Builder
	for i, line := range lines {
		if trimmed := strings.TrimLeft(line, " \t"); trimmed != "" {
			sb.WriteString("  ")
			sb.WriteString(trimmed)
		}
		if i < len(lines)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlphaNumeric(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9')
}
