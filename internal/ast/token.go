package ast

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuoted
	tokNumber
	tokString
	tokLBrace    // {
	tokRBrace    // }
	tokLBracket  // [
	tokRBracket  // ]
	tokSemicolon // ;
	tokComma     // ,
	tokColonColon
	tokSpecializes // :>
	tokRedefines   // :>>
	tokColon       // :
	tokAssign      // =
	tokInitial     // :=
	tokConjugates  // ~
	tokStar        // *
	tokStarStar    // **
	tokLAngle      // <
	tokRAngle      // >
	tokDotDot      // ..
)

var tokenNames = map[tokenKind]string{
	tokEOF:         "end of file",
	tokIdent:       "identifier",
	tokQuoted:      "quoted name",
	tokNumber:      "number",
	tokString:      "string",
	tokLBrace:      "'{'",
	tokRBrace:      "'}'",
	tokLBracket:    "'['",
	tokRBracket:    "']'",
	tokSemicolon:   "';'",
	tokComma:       "','",
	tokColonColon:  "'::'",
	tokSpecializes: "':>'",
	tokRedefines:   "':>>'",
	tokColon:       "':'",
	tokAssign:      "'='",
	tokInitial:     "':='",
	tokConjugates:  "'~'",
	tokStar:        "'*'",
	tokStarStar:    "'**'",
	tokLAngle:      "'<'",
	tokRAngle:      "'>'",
	tokDotDot:      "'..'",
}

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokIdent, tokQuoted, tokNumber, tokString:
		return fmt.Sprintf("%q", t.text)
	}
	return tokenNames[t.kind]
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	errs []ParseError
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) {
	l.errs = append(l.errs, ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Col:     col,
	})
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skipTrivia consumes whitespace, // line comments and //* ... *// block
// comments.
func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		r := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.peekAt(1) == '/' && l.peekAt(2) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			l.advance()
			closed := false
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' && l.peekAt(2) == '/' {
					l.advance()
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.errorf(line, col, "unterminated block comment")
			}
		case r == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) next() token {
	l.skipTrivia()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}
	}
	r := l.peek()

	switch {
	case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		var out []rune
		for l.pos < len(l.src) {
			c := l.peek()
			if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
				out = append(out, l.advance())
			} else {
				break
			}
		}
		return token{kind: tokIdent, text: string(out), line: line, col: col}

	case r >= '0' && r <= '9':
		var out []rune
		for l.pos < len(l.src) && l.peek() >= '0' && l.peek() <= '9' {
			out = append(out, l.advance())
		}
		return token{kind: tokNumber, text: string(out), line: line, col: col}

	case r == '\'':
		l.advance()
		var out []rune
		closed := false
		for l.pos < len(l.src) {
			c := l.advance()
			if c == '\\' && l.peek() == '\'' {
				out = append(out, l.advance())
				continue
			}
			if c == '\'' {
				closed = true
				break
			}
			out = append(out, c)
		}
		if !closed {
			l.errorf(line, col, "unterminated quoted name")
		}
		return token{kind: tokQuoted, text: string(out), line: line, col: col}

	case r == '"':
		// String literals appear only inside value expressions, which are
		// carried as raw text, so the quotes stay part of the token.
		out := []rune{l.advance()}
		closed := false
		for l.pos < len(l.src) {
			c := l.advance()
			out = append(out, c)
			if c == '\\' && l.pos < len(l.src) {
				out = append(out, l.advance())
				continue
			}
			if c == '"' {
				closed = true
				break
			}
		}
		if !closed {
			l.errorf(line, col, "unterminated string")
		}
		return token{kind: tokString, text: string(out), line: line, col: col}
	}

	l.advance()
	simple := func(k tokenKind) token { return token{kind: k, line: line, col: col} }
	switch r {
	case '{':
		return simple(tokLBrace)
	case '}':
		return simple(tokRBrace)
	case '[':
		return simple(tokLBracket)
	case ']':
		return simple(tokRBracket)
	case ';':
		return simple(tokSemicolon)
	case ',':
		return simple(tokComma)
	case '~':
		return simple(tokConjugates)
	case '=':
		return simple(tokAssign)
	case '<':
		return simple(tokLAngle)
	case '>':
		return simple(tokRAngle)
	case '*':
		if l.peek() == '*' {
			l.advance()
			return simple(tokStarStar)
		}
		return simple(tokStar)
	case '.':
		if l.peek() == '.' {
			l.advance()
			return simple(tokDotDot)
		}
		l.errorf(line, col, "unexpected character '.'")
		return l.next()
	case ':':
		switch l.peek() {
		case ':':
			l.advance()
			return simple(tokColonColon)
		case '>':
			l.advance()
			if l.peek() == '>' {
				l.advance()
				return simple(tokRedefines)
			}
			return simple(tokSpecializes)
		case '=':
			l.advance()
			return simple(tokInitial)
		}
		return simple(tokColon)
	}

	l.errorf(line, col, "unexpected character %q", string(r))
	return l.next()
}

// lexAll tokenizes the whole source. The token stream always ends with EOF.
func lexAll(src string) ([]token, []ParseError) {
	l := newLexer(src)
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, l.errs
		}
	}
}
