// Package dump — lexer.
// Splits dump text into a flat token stream. Quote state is tracked per
// character, so delimiters inside strings are never seen as delimiters, and
// comments never reach the parser.
package dump

type tokenKind uint8

const (
	tokEOF       tokenKind = iota
	tokString              // 'text' or "text", quotes included
	tokIdent               // `identifier`, backticks included
	tokBare                // keywords, numbers, NULL, any other bare run
	tokLParen              // (
	tokRParen              // )
	tokComma               // ,
	tokSemicolon           // ;
	tokError               // unterminated string or identifier, runs to EOF
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer scans src once; tokens reference substrings of src.
type lexer struct {
	src    string
	pos    int
	line   int
	tokens []token
}

// lex tokenizes src. The returned slice always ends with a tokEOF token.
func lex(src string) []token {
	l := &lexer{src: src, line: 1}
	l.run()
	return l.tokens
}

func (l *lexer) emit(kind tokenKind, start, line int) {
	l.tokens = append(l.tokens, token{kind: kind, text: l.src[start:l.pos], line: line})
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case isSpace(c):
			l.pos++
		case c == '-' && l.at(l.pos+1) == '-' && (l.pos+2 >= len(l.src) || isSpace(l.src[l.pos+2])):
			l.skipLine()
		case c == '#':
			l.skipLine()
		case c == '/' && l.at(l.pos+1) == '*':
			l.skipBlock()
		case c == '\'' || c == '"':
			l.lexQuoted(c, tokString)
		case c == '`':
			l.lexQuoted(c, tokIdent)
		case c == '(':
			l.single(tokLParen)
		case c == ')':
			l.single(tokRParen)
		case c == ',':
			l.single(tokComma)
		case c == ';':
			l.single(tokSemicolon)
		default:
			l.lexBare()
		}
	}
	l.tokens = append(l.tokens, token{kind: tokEOF, line: l.line})
}

// at returns the byte at i, or 0 past the end.
func (l *lexer) at(i int) byte {
	if i < len(l.src) {
		return l.src[i]
	}
	return 0
}

func (l *lexer) single(kind tokenKind) {
	start := l.pos
	l.pos++
	l.emit(kind, start, l.line)
}

// skipLine skips to (not past) the next newline.
func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

// skipBlock skips a /* ... */ comment, including /*! ... */ conditional comments.
func (l *lexer) skipBlock() {
	l.pos += 2
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.at(l.pos+1) == '/' {
			l.pos += 2
			return
		}
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

// lexQuoted scans a quoted string or identifier. Backslash escapes apply to
// strings only; a doubled quote is an escaped quote in both.
func (l *lexer) lexQuoted(q byte, kind tokenKind) {
	start, line := l.pos, l.line
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && q != '`':
			if l.at(l.pos+1) == '\n' {
				l.line++
			}
			l.pos += 2
		case c == q:
			if l.at(l.pos+1) == q {
				l.pos += 2
				continue
			}
			l.pos++
			l.emit(kind, start, line)
			return
		case c == '\n':
			l.line++
			l.pos++
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
	l.emit(tokError, start, line)
}

func (l *lexer) lexBare() {
	start := l.pos
	for l.pos < len(l.src) && !isDelim(l.src[l.pos]) {
		l.pos++
	}
	l.emit(tokBare, start, l.line)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', ',', ';', '\'', '"', '`':
		return true
	}
	return isSpace(c)
}
