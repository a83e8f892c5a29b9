package syntax

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode"
)

// Pos is a 1-based line and column.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type TokenKind uint8

const (
	TokenInvalid TokenKind = iota
	TokenEOF
	TokenName
	TokenVariable
	TokenNumber
	TokenSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenName:
		return "name"
	case TokenVariable:
		return "variable"
	case TokenNumber:
		return "number"
	case TokenSymbol:
		return "symbol"
	}
	return "invalid token"
}

type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

func (t *Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Tokenizer splits the textual form of terms, rules and signatures. Names
// run until whitespace or a symbol; a trailing underscore marks a variable.
type Tokenizer struct {
	source  *bufio.Reader
	current *Token

	currPos Pos
	prevPos Pos
}

func NewTokenizer(source io.Reader) *Tokenizer {
	return &Tokenizer{
		source: bufio.NewReader(source),
		currPos: Pos{
			Line:   1,
			Column: 1,
		},
	}
}

func isSymbol(r rune) bool {
	switch r {
	case '[', ']', '(', ')', ',', '=', '|', ';', '.', '/', '#':
		return true
	}
	return false
}

func (t *Tokenizer) readRune() (rune, error) {
	r, _, err := t.source.ReadRune()
	if err != nil {
		return 0, err
	}

	t.prevPos = t.currPos
	if r == '\n' {
		t.currPos.Line++
		t.currPos.Column = 1
	} else {
		t.currPos.Column++
	}

	return r, nil
}

func (t *Tokenizer) unreadRune() {
	t.source.UnreadRune()
	t.currPos = t.prevPos
}

func (t *Tokenizer) Current() (*Token, error) {
	if t.current == nil {
		var err error
		t.current, err = t.parseNext()
		if err != nil {
			return nil, err
		}
	}
	return t.current, nil
}

func (t *Tokenizer) Consume() {
	t.current = nil
}

func (t *Tokenizer) parseNext() (*Token, error) {
	t.skipWhitespace()
	startPos := t.currPos

	r, err := t.readRune()
	if err == io.EOF {
		return &Token{Kind: TokenEOF, Pos: startPos}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case r == '#':
		t.skipComment()
		return t.parseNext()
	case isSymbol(r):
		return &Token{Kind: TokenSymbol, Text: string(r), Pos: startPos}, nil
	case unicode.IsDigit(r):
		t.unreadRune()
		return t.parseNumber()
	case unicode.IsGraphic(r):
		t.unreadRune()
		return t.parseName()
	}

	return &Token{Kind: TokenInvalid, Text: string(r), Pos: startPos}, nil
}

func (t *Tokenizer) skipWhitespace() {
	for {
		r, err := t.readRune()
		if err != nil {
			return
		}
		if !unicode.IsSpace(r) {
			t.unreadRune()
			return
		}
	}
}

func (t *Tokenizer) skipComment() {
	for {
		r, err := t.readRune()
		if err != nil {
			return
		}
		if r == '\n' {
			return
		}
	}
}

func (t *Tokenizer) parseName() (*Token, error) {
	startPos := t.currPos
	var buf bytes.Buffer
	for {
		r, err := t.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if unicode.IsSpace(r) || isSymbol(r) {
			t.unreadRune()
			break
		}
		buf.WriteRune(r)
	}
	text := buf.String()
	if name, ok := bytes.CutSuffix(buf.Bytes(), []byte("_")); ok && len(name) > 0 {
		return &Token{Kind: TokenVariable, Text: string(name), Pos: startPos}, nil
	}
	return &Token{Kind: TokenName, Text: text, Pos: startPos}, nil
}

func (t *Tokenizer) parseNumber() (*Token, error) {
	startPos := t.currPos
	var buf bytes.Buffer
	for {
		r, err := t.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !unicode.IsDigit(r) {
			t.unreadRune()
			break
		}
		buf.WriteRune(r)
	}
	return &Token{
		Kind: TokenNumber,
		Text: buf.String(),
		Pos:  startPos,
	}, nil
}
