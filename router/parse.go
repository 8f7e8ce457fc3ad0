// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"strconv"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// Decl is one element declaration of a pipeline definition.
type Decl struct {
	Name   string
	Class  string
	Config string
	Line   int
}

// Conn is one directed connection between two declared elements: output
// port FromPort of From feeds input port ToPort of To.
type Conn struct {
	From     string
	FromPort int
	To       string
	ToPort   int
	Line     int
}

// Definition is a parsed pipeline text.
type Definition struct {
	Decls []Decl
	Conns []Conn
	// Text preserves the original definition; the router serves it through
	// its configuration handler.
	Text string
}

// ParseDefinition parses a pipeline definition. The grammar is a statement
// list where each statement is terminated by a semicolon:
//
//	q :: Queue(100);                   // declaration
//	src -> red -> q;                   // connection chain
//	red [1] -> [0] marker;             // explicit ports
//
// Line comments (// and #) and block comments are skipped. Connections may
// only reference declared names.
func ParseDefinition(text string) (*Definition, error) {
	p := &parser{
		lex: &lexer{src: text, line: 1},
		def: &Definition{Text: text},
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	declared := map[string]int{}
	for p.tok.kind != tokEOF {
		if err := p.statement(declared); err != nil {
			return nil, err
		}
	}
	for _, conn := range p.def.Conns {
		for _, name := range []string{conn.From, conn.To} {
			if _, ok := declared[name]; !ok {
				return nil, serrors.New("connection references undeclared element",
					"element", name, "line", conn.Line)
			}
		}
	}
	return p.def, nil
}

type parser struct {
	lex *lexer
	tok token
	def *Definition
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) statement(declared map[string]int) error {
	if p.tok.kind == tokIdent {
		name := p.tok.text
		line := p.tok.line
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind == tokColonColon {
			return p.declaration(declared, name, line)
		}
		return p.chain(chainNode{name: name, inPort: -1, outPort: -1}, line)
	}
	if p.tok.kind == tokLBracket {
		return serrors.New("chain cannot start with an input port",
			"line", p.tok.line)
	}
	return serrors.New("expected element name", "line", p.tok.line,
		"got", p.tok.text)
}

func (p *parser) declaration(declared map[string]int, name string, line int) error {
	if prev, ok := declared[name]; ok {
		return serrors.New("element redeclared", "element", name,
			"line", line, "previous", prev)
	}
	if err := p.advance(); err != nil { // consume '::'
		return err
	}
	if p.tok.kind != tokIdent {
		return serrors.New("expected element class", "line", p.tok.line)
	}
	decl := Decl{Name: name, Class: p.tok.text, Line: line}
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind == tokConfig {
		decl.Config = p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
	}
	if p.tok.kind != tokSemi {
		return serrors.New("expected ';' after declaration",
			"element", name, "line", p.tok.line)
	}
	declared[name] = line
	p.def.Decls = append(p.def.Decls, decl)
	return p.advance()
}

type chainNode struct {
	name    string
	inPort  int
	outPort int
}

// chain parses the remainder of a connection chain whose first node name
// was already consumed.
func (p *parser) chain(first chainNode, line int) error {
	var err error
	if first.outPort, err = p.optionalPort(); err != nil {
		return err
	}
	nodes := []chainNode{first}
	for p.tok.kind == tokArrow {
		if err := p.advance(); err != nil {
			return err
		}
		node, err := p.node()
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	if p.tok.kind != tokSemi {
		return serrors.New("expected '->' or ';' in chain", "line", p.tok.line)
	}
	if len(nodes) < 2 {
		return serrors.New("chain needs at least two elements", "line", line)
	}
	if last := nodes[len(nodes)-1]; last.outPort >= 0 {
		return serrors.New("output port on last element of a chain",
			"element", last.name, "line", line)
	}
	for i := 0; i+1 < len(nodes); i++ {
		from, to := nodes[i], nodes[i+1]
		conn := Conn{From: from.name, To: to.name, Line: line}
		if from.outPort >= 0 {
			conn.FromPort = from.outPort
		}
		if to.inPort >= 0 {
			conn.ToPort = to.inPort
		}
		p.def.Conns = append(p.def.Conns, conn)
	}
	return p.advance()
}

func (p *parser) node() (chainNode, error) {
	node := chainNode{inPort: -1, outPort: -1}
	var err error
	if node.inPort, err = p.optionalPort(); err != nil {
		return node, err
	}
	if p.tok.kind != tokIdent {
		return node, serrors.New("expected element name in chain",
			"line", p.tok.line)
	}
	node.name = p.tok.text
	if err := p.advance(); err != nil {
		return node, err
	}
	if node.outPort, err = p.optionalPort(); err != nil {
		return node, err
	}
	return node, nil
}

// optionalPort parses a bracketed port index if one is present, -1
// otherwise.
func (p *parser) optionalPort() (int, error) {
	if p.tok.kind != tokLBracket {
		return -1, nil
	}
	if err := p.advance(); err != nil {
		return -1, err
	}
	if p.tok.kind != tokNumber {
		return -1, serrors.New("expected port number", "line", p.tok.line)
	}
	port, err := strconv.Atoi(p.tok.text)
	if err != nil || port >= maxPorts {
		return -1, serrors.New("invalid port number", "port", p.tok.text,
			"line", p.tok.line)
	}
	if err := p.advance(); err != nil {
		return -1, err
	}
	if p.tok.kind != tokRBracket {
		return -1, serrors.New("expected ']'", "line", p.tok.line)
	}
	return port, p.advance()
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokConfig
	tokColonColon
	tokArrow
	tokLBracket
	tokRBracket
	tokSemi
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}
	start, line := l.pos, l.line
	switch c := l.src[l.pos]; {
	case c == ';':
		l.pos++
		return token{kind: tokSemi, text: ";", line: line}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBracket, text: "[", line: line}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBracket, text: "]", line: line}, nil
	case c == '(':
		return l.captureConfig()
	case c == ':':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == ':' {
			l.pos += 2
			return token{kind: tokColonColon, text: "::", line: line}, nil
		}
		return token{}, serrors.New("unexpected ':'", "line", line)
	case c == '-':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '>' {
			l.pos += 2
			return token{kind: tokArrow, text: "->", line: line}, nil
		}
		return token{}, serrors.New("unexpected '-'", "line", line)
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], line: line}, nil
	case c >= '0' && c <= '9':
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], line: line}, nil
	default:
		return token{}, serrors.New("unexpected character",
			"char", string(c), "line", line)
	}
}

// captureConfig consumes a parenthesized configuration, returning the raw
// text between the outermost parentheses. Nested parentheses are kept;
// comments are skipped.
func (l *lexer) captureConfig() (token, error) {
	line := l.line
	l.pos++ // consume '('
	var buf []byte
	depth := 1
	for l.pos < len(l.src) {
		if skipped, err := l.skipComment(); err != nil {
			return token{}, err
		} else if skipped {
			buf = append(buf, ' ')
			continue
		}
		c := l.src[l.pos]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				l.pos++
				return token{kind: tokConfig, text: string(buf), line: line}, nil
			}
		case '\n':
			l.line++
		}
		buf = append(buf, c)
		l.pos++
	}
	return token{}, serrors.New("unterminated configuration", "line", line)
}

// skipSpace advances over whitespace and comments.
func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		if skipped, err := l.skipComment(); err != nil {
			return err
		} else if skipped {
			continue
		}
		switch l.src[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
		case '\n':
			l.line++
			l.pos++
		default:
			return nil
		}
	}
	return nil
}

// skipComment advances over one comment if the cursor is at one.
func (l *lexer) skipComment() (bool, error) {
	if l.pos >= len(l.src) {
		return false, nil
	}
	switch {
	case l.src[l.pos] == '#',
		l.pos+1 < len(l.src) && l.src[l.pos] == '/' && l.src[l.pos+1] == '/':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
		return true, nil
	case l.pos+1 < len(l.src) && l.src[l.pos] == '/' && l.src[l.pos+1] == '*':
		line := l.line
		l.pos += 2
		for l.pos+1 < len(l.src) {
			if l.src[l.pos] == '*' && l.src[l.pos+1] == '/' {
				l.pos += 2
				return true, nil
			}
			if l.src[l.pos] == '\n' {
				l.line++
			}
			l.pos++
		}
		return false, serrors.New("unterminated block comment", "line", line)
	}
	return false, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
