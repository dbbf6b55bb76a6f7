package ast

import "fmt"

type parser struct {
	toks []token
	pos  int
	errs []ParseError
}

// Parse parses one document and returns its root node (KindInvalid, children
// are the top level declarations) together with any syntax errors. The tree
// is always returned; erroneous declarations are skipped, not fatal.
func Parse(src string) (*Node, []ParseError) {
	toks, lexErrs := lexAll(src)
	p := &parser{toks: toks, errs: lexErrs}
	root := &Node{Line: 1, Col: 1}
	for !p.at(tokEOF) {
		if n := p.parseMember(); n != nil {
			root.Children = append(root.Children, n)
		}
	}
	return root, p.errs
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) at(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur().kind == tokIdent && p.cur().text == kw
}

func (p *parser) errorf(t token, format string, args ...any) {
	p.errs = append(p.errs, ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    t.line,
		Col:     t.col,
	})
}

// recover skips to the next declaration boundary.
func (p *parser) recover() {
	depth := 0
	for !p.at(tokEOF) {
		switch p.cur().kind {
		case tokSemicolon:
			if depth == 0 {
				p.advance()
				return
			}
			p.advance()
		case tokLBrace:
			depth++
			p.advance()
		case tokRBrace:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
		default:
			p.advance()
		}
	}
}

func (p *parser) expect(k tokenKind) (token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf(p.cur(), "expected %s, found %s", tokenNames[k], p.cur())
	return p.cur(), false
}

// parseMember parses one declaration: prefixes, a declaration keyword and
// its body.
func (p *parser) parseMember() *Node {
	start := p.cur()
	n := &Node{Line: start.line, Col: start.col}

	// Visibility prefix.
	switch {
	case p.atKeyword("public"), p.atKeyword("protected"), p.atKeyword("private"):
		n.Visibility = p.advance().text
	}

	// Modifier and direction prefixes, any order.
	for p.at(tokIdent) {
		switch p.cur().text {
		case "abstract":
			n.Abstract = true
		case "readonly":
			n.Readonly = true
		case "derived":
			n.Derived = true
		case "composite":
			n.Composite = true
		case "end":
			n.End = true
		case "ordered":
			n.Ordered = true
		case "nonunique":
			n.NonUnique = true
		case "in", "out", "inout":
			n.Direction = p.cur().text
		default:
			goto prefixesDone
		}
		p.advance()
	}
prefixesDone:

	kw := p.cur()
	if kw.kind != tokIdent {
		p.errorf(kw, "expected a declaration, found %s", kw)
		p.recover()
		return nil
	}

	switch kw.text {
	case "package":
		p.advance()
		n.Kind = KindPackage
	case "type":
		p.advance()
		n.Kind = KindType
	case "class":
		p.advance()
		n.Kind = KindClass
	case "struct":
		p.advance()
		n.Kind = KindStruct
	case "datatype":
		p.advance()
		n.Kind = KindDataType
	case "assoc":
		p.advance()
		n.Kind = KindAssoc
		if p.atKeyword("struct") {
			p.advance()
			n.Kind = KindAssocStruct
		}
	case "feature":
		p.advance()
		n.Kind = KindFeature
	case "import":
		p.advance()
		return p.parseImport(n)
	case "alias":
		p.advance()
		return p.parseAlias(n)
	default:
		p.errorf(kw, "expected a declaration, found %s", kw)
		p.recover()
		return nil
	}

	return p.parseDeclaration(n)
}

// parseDeclaration parses the remainder of a package, type, classifier or
// feature declaration: names, heritage, multiplicity, value, body.
func (p *parser) parseDeclaration(n *Node) *Node {
	// Optional short name in angle brackets, then optional name.
	if p.at(tokLAngle) {
		p.advance()
		if t, ok := p.expectName(); ok {
			n.ShortName = t
		}
		p.expect(tokRAngle)
	}
	if p.at(tokIdent) || p.at(tokQuoted) {
		n.Name = p.advance().text
	}

	if n.Kind != KindPackage {
		p.parseHeritage(n)
	}

	if p.at(tokLBracket) {
		n.Multiplicity = p.parseMultiplicity()
	}

	if p.at(tokAssign) || p.at(tokInitial) {
		initial := p.advance().kind == tokInitial
		n.Value = &Value{Text: p.rawUntilTerminator(), Initial: initial}
	}

	switch {
	case p.at(tokLBrace):
		p.advance()
		for !p.at(tokRBrace) && !p.at(tokEOF) {
			if c := p.parseMember(); c != nil {
				n.Children = append(n.Children, c)
			}
		}
		p.expect(tokRBrace)
	case p.at(tokSemicolon):
		p.advance()
	default:
		p.errorf(p.cur(), "expected '{' or ';', found %s", p.cur())
		p.recover()
	}
	return n
}

// parseHeritage consumes heritage clauses in any order and number:
// ':>' and ':>>' take comma separated name lists, '~' and ':' take one name.
func (p *parser) parseHeritage(n *Node) {
	for {
		switch p.cur().kind {
		case tokSpecializes, tokRedefines:
			kind := HeritageSpecializes
			if p.cur().kind == tokRedefines {
				kind = HeritageRedefines
			}
			p.advance()
			for {
				if qn, ok := p.parseQualifiedName(); ok {
					n.Heritage = append(n.Heritage, Heritage{Kind: kind, Target: qn})
				}
				if !p.at(tokComma) {
					break
				}
				p.advance()
			}
		case tokConjugates:
			p.advance()
			if qn, ok := p.parseQualifiedName(); ok {
				n.Heritage = append(n.Heritage, Heritage{Kind: HeritageConjugates, Target: qn})
			}
		case tokColon:
			if n.Kind != KindFeature {
				return
			}
			p.advance()
			if qn, ok := p.parseQualifiedName(); ok {
				n.Heritage = append(n.Heritage, Heritage{Kind: HeritageTyping, Target: qn})
			}
		default:
			return
		}
	}
}

func (p *parser) parseMultiplicity() *Multiplicity {
	p.expect(tokLBracket)
	m := &Multiplicity{}
	switch {
	case p.at(tokStar):
		p.advance()
		m.Lower, m.Upper = 0, -1
	case p.at(tokNumber):
		m.Lower = atoiSafe(p.advance().text)
		m.Upper = m.Lower
		if p.at(tokDotDot) {
			p.advance()
			switch {
			case p.at(tokStar):
				p.advance()
				m.Upper = -1
			case p.at(tokNumber):
				m.Upper = atoiSafe(p.advance().text)
			default:
				p.errorf(p.cur(), "expected multiplicity bound, found %s", p.cur())
			}
		}
	default:
		p.errorf(p.cur(), "expected multiplicity, found %s", p.cur())
	}
	p.expect(tokRBracket)
	return m
}

// rawUntilTerminator captures expression text verbatim up to the declaration
// terminator. Token texts are rejoined with spaces; the core never evaluates
// the expression.
func (p *parser) rawUntilTerminator() string {
	out := ""
	for !p.at(tokSemicolon) && !p.at(tokLBrace) && !p.at(tokRBrace) && !p.at(tokEOF) {
		t := p.advance()
		if out != "" {
			out += " "
		}
		if t.kind == tokIdent || t.kind == tokQuoted || t.kind == tokNumber || t.kind == tokString {
			out += t.text
		} else {
			out += tokenText(t.kind)
		}
	}
	return out
}

func (p *parser) parseImport(n *Node) *Node {
	n.Kind = KindImport
	qn := QualifiedName{Line: p.cur().line, Col: p.cur().col}
	if t, ok := p.expectName(); ok {
		qn.Parts = append(qn.Parts, t)
	} else {
		p.recover()
		return nil
	}
	for p.at(tokColonColon) {
		p.advance()
		switch {
		case p.at(tokStar):
			p.advance()
			n.All = true
		case p.at(tokStarStar):
			p.advance()
			n.All = true
			n.Recursive = true
		default:
			if t, ok := p.expectName(); ok {
				qn.Parts = append(qn.Parts, t)
			} else {
				p.recover()
				return nil
			}
			continue
		}
		break
	}
	n.Target = &qn
	p.expect(tokSemicolon)
	return n
}

func (p *parser) parseAlias(n *Node) *Node {
	n.Kind = KindAlias
	if t, ok := p.expectName(); ok {
		n.Name = t
	} else {
		p.recover()
		return nil
	}
	if !p.atKeyword("for") {
		p.errorf(p.cur(), "expected 'for', found %s", p.cur())
		p.recover()
		return nil
	}
	p.advance()
	qn, ok := p.parseQualifiedName()
	if !ok {
		p.recover()
		return nil
	}
	n.Target = &qn
	p.expect(tokSemicolon)
	return n
}

func (p *parser) parseQualifiedName() (QualifiedName, bool) {
	qn := QualifiedName{Line: p.cur().line, Col: p.cur().col}
	t, ok := p.expectName()
	if !ok {
		return qn, false
	}
	qn.Parts = append(qn.Parts, t)
	for p.at(tokColonColon) {
		p.advance()
		t, ok := p.expectName()
		if !ok {
			return qn, false
		}
		qn.Parts = append(qn.Parts, t)
	}
	return qn, true
}

func (p *parser) expectName() (string, bool) {
	if p.at(tokIdent) || p.at(tokQuoted) {
		return p.advance().text, true
	}
	p.errorf(p.cur(), "expected a name, found %s", p.cur())
	return "", false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func tokenText(k tokenKind) string {
	switch k {
	case tokColonColon:
		return "::"
	case tokDotDot:
		return ".."
	case tokComma:
		return ","
	case tokStar:
		return "*"
	case tokLBracket:
		return "["
	case tokRBracket:
		return "]"
	}
	return ""
}
