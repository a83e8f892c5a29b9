// Package syntax reads and writes the textual form of terms, rules and
// rewrite systems:
//
//	signature S/0 K/0 ./2 x_;   # atoms, declared up front (optional)
//	K . x_ . y_ = x_;           # a rule
//	F[x_, G] = x_ | G;          # a rule with two alternatives
//
// Name is an operator of arity zero, Name[a, b] applies an operator to its
// arguments and name_ is a variable. The binary operator "." may be written
// infix; it associates to the left and parentheses group a right operand.
//
// Parsing resolves names against a *trs.Signature, adding any operator or
// variable it has not seen. Printing is the String method of the trs types,
// so text parsed against the signature it was printed from yields
// structurally equal values.
package syntax

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/gotrs/pkg/trs"
)

// ErrSyntax is wrapped by every *Error.
var ErrSyntax = errors.New("syntax error")

// Error reports malformed input at a position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax: %s at %s", e.Msg, e.Pos)
}

func (e *Error) Unwrap() error { return ErrSyntax }

const keywordSignature = "signature"

// Parser reads statements from a single source.
type Parser struct {
	tok *Tokenizer
	sig *trs.Signature
}

// NewParser returns a parser resolving names in sig. A nil sig starts empty.
func NewParser(source io.Reader, sig *trs.Signature) *Parser {
	if sig == nil {
		sig = trs.NewSignature()
	}
	return &Parser{tok: NewTokenizer(source), sig: sig}
}

// Signature returns the signature names are resolved in.
func (p *Parser) Signature() *trs.Signature { return p.sig }

func (p *Parser) current() (*Token, error) {
	tok, err := p.tok.Current()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokenInvalid {
		return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected character %q", tok.Text)}
	}
	return tok, nil
}

func (p *Parser) atSymbol(s string) (bool, error) {
	tok, err := p.current()
	if err != nil {
		return false, err
	}
	return tok.Kind == TokenSymbol && tok.Text == s, nil
}

func (p *Parser) expectSymbol(s string) error {
	tok, err := p.current()
	if err != nil {
		return err
	}
	if tok.Kind != TokenSymbol || tok.Text != s {
		return &Error{Pos: tok.Pos, Msg: fmt.Sprintf("expected %q, found %s", s, tok)}
	}
	p.tok.Consume()
	return nil
}

// AtEOF reports whether the input is exhausted.
func (p *Parser) AtEOF() (bool, error) {
	tok, err := p.current()
	if err != nil {
		return false, err
	}
	return tok.Kind == TokenEOF, nil
}

func (p *Parser) operator(name string, arity int, pos Pos) (*trs.Operator, error) {
	if op, ok := p.sig.Operator(name, arity); ok {
		return op, nil
	}
	op, err := trs.NewOperator(name, arity)
	if err != nil {
		return nil, fmt.Errorf("syntax: %s: %w", pos, err)
	}
	p.sig.Add(op)
	return op, nil
}

func (p *Parser) variable(name string) *trs.Variable {
	if v, ok := p.sig.Variable(name); ok {
		return v
	}
	v := trs.NewVariable(name)
	p.sig.Add(v)
	return v
}

// Term parses one term.
func (p *Parser) Term() (trs.Term, error) {
	left, err := p.application()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenSymbol || tok.Text != trs.InfixName {
			return left, nil
		}
		p.tok.Consume()
		right, err := p.application()
		if err != nil {
			return nil, err
		}
		dot, err := p.operator(trs.InfixName, 2, tok.Pos)
		if err != nil {
			return nil, err
		}
		left = trs.App(dot, left, right)
	}
}

func (p *Parser) application() (trs.Term, error) {
	tok, err := p.current()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokenVariable:
		p.tok.Consume()
		return p.variable(tok.Text), nil
	case TokenName, TokenNumber:
		if tok.Text == keywordSignature {
			return nil, &Error{Pos: tok.Pos, Msg: "signature declaration inside a term"}
		}
		p.tok.Consume()
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		op, err := p.operator(tok.Text, len(args), tok.Pos)
		if err != nil {
			return nil, err
		}
		return trs.App(op, args...), nil
	case TokenSymbol:
		if tok.Text == "(" {
			p.tok.Consume()
			t, err := p.Term()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("expected a term, found %s", tok)}
}

// arguments parses an optional bracketed argument list.
func (p *Parser) arguments() ([]trs.Term, error) {
	open, err := p.atSymbol("[")
	if err != nil || !open {
		return nil, err
	}
	p.tok.Consume()
	if closed, err := p.atSymbol("]"); err != nil {
		return nil, err
	} else if closed {
		p.tok.Consume()
		return nil, nil
	}
	var args []trs.Term
	for {
		arg, err := p.Term()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenSymbol && tok.Text == "," {
			p.tok.Consume()
			continue
		}
		if tok.Kind == TokenSymbol && tok.Text == "]" {
			p.tok.Consume()
			return args, nil
		}
		return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("expected \",\" or \"]\", found %s", tok)}
	}
}

// Rule parses "lhs = r1 | r2;".
func (p *Parser) Rule() (*trs.Rule, error) {
	tok, err := p.current()
	if err != nil {
		return nil, err
	}
	lhs, rhs, err := p.sides()
	if err != nil {
		return nil, err
	}
	r, err := trs.NewRule(lhs, rhs...)
	if err != nil {
		return nil, fmt.Errorf("syntax: rule at %s: %w", tok.Pos, err)
	}
	return r, nil
}

func (p *Parser) sides() (trs.Term, []trs.Term, error) {
	lhs, err := p.Term()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, nil, err
	}
	var rhs []trs.Term
	for {
		t, err := p.Term()
		if err != nil {
			return nil, nil, err
		}
		rhs = append(rhs, t)
		more, err := p.atSymbol("|")
		if err != nil {
			return nil, nil, err
		}
		if !more {
			break
		}
		p.tok.Consume()
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

// Equation parses "input = output;". Unlike a rule, either side may be a
// variable and the output may mention any variable.
func (p *Parser) Equation() (trs.Equation, error) {
	lhs, rhs, err := p.sides()
	if err != nil {
		return trs.Equation{}, err
	}
	if len(rhs) != 1 {
		return trs.Equation{}, &Error{Pos: p.tok.currPos, Msg: "equation with more than one right-hand side"}
	}
	return trs.Equation{Left: lhs, Right: rhs[0]}, nil
}

// atSignature reports whether the next statement is a signature declaration.
func (p *Parser) atSignature() (bool, error) {
	tok, err := p.current()
	if err != nil {
		return false, err
	}
	return tok.Kind == TokenName && tok.Text == keywordSignature, nil
}

// SignatureDecl parses "signature Name/2 x_;" and adds the atoms.
func (p *Parser) SignatureDecl() error {
	tok, err := p.current()
	if err != nil {
		return err
	}
	if tok.Kind != TokenName || tok.Text != keywordSignature {
		return &Error{Pos: tok.Pos, Msg: fmt.Sprintf("expected %q, found %s", keywordSignature, tok)}
	}
	p.tok.Consume()
	for {
		tok, err := p.current()
		if err != nil {
			return err
		}
		switch {
		case tok.Kind == TokenSymbol && tok.Text == ";":
			p.tok.Consume()
			return nil
		case tok.Kind == TokenVariable:
			p.tok.Consume()
			p.variable(tok.Text)
		case tok.Kind == TokenName, tok.Kind == TokenNumber,
			tok.Kind == TokenSymbol && tok.Text == trs.InfixName:
			p.tok.Consume()
			if err := p.expectSymbol("/"); err != nil {
				return err
			}
			num, err := p.current()
			if err != nil {
				return err
			}
			if num.Kind != TokenNumber {
				return &Error{Pos: num.Pos, Msg: fmt.Sprintf("expected an arity, found %s", num)}
			}
			arity, err := strconv.Atoi(num.Text)
			if err != nil {
				return &Error{Pos: num.Pos, Msg: fmt.Sprintf("bad arity %q", num.Text)}
			}
			p.tok.Consume()
			if _, err := p.operator(tok.Text, arity, tok.Pos); err != nil {
				return err
			}
		default:
			return &Error{Pos: tok.Pos, Msg: fmt.Sprintf("expected an atom declaration, found %s", tok)}
		}
	}
}

func (p *Parser) expectEOF() error {
	tok, err := p.current()
	if err != nil {
		return err
	}
	if tok.Kind != TokenEOF {
		return &Error{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected %s after input", tok)}
	}
	return nil
}

// ParseTerm parses a single term, resolving names in sig.
func ParseTerm(sig *trs.Signature, src string) (trs.Term, error) {
	p := NewParser(strings.NewReader(src), sig)
	t, err := p.Term()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseRule parses a single rule, resolving names in sig. The trailing
// semicolon may be omitted.
func ParseRule(sig *trs.Signature, src string) (*trs.Rule, error) {
	src = strings.TrimSpace(src)
	if !strings.HasSuffix(src, ";") {
		src += ";"
	}
	p := NewParser(strings.NewReader(src), sig)
	r, err := p.Rule()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseSignature parses signature declarations into sig, or into a new
// signature when sig is nil.
func ParseSignature(sig *trs.Signature, src string) (*trs.Signature, error) {
	p := NewParser(strings.NewReader(src), sig)
	for {
		eof, err := p.AtEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			return p.sig, nil
		}
		if err := p.SignatureDecl(); err != nil {
			return nil, err
		}
	}
}

// ReadTRS reads signature declarations and rules until EOF. Rules are added
// in order with trs.TRS.AddRule, so alpha-equivalent left sides merge.
func ReadTRS(source io.Reader, sig *trs.Signature) (*trs.TRS, error) {
	p := NewParser(source, sig)
	system, err := trs.New(p.sig)
	if err != nil {
		return nil, err
	}
	for {
		eof, err := p.AtEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			return system, nil
		}
		decl, err := p.atSignature()
		if err != nil {
			return nil, err
		}
		if decl {
			if err := p.SignatureDecl(); err != nil {
				return nil, err
			}
			continue
		}
		r, err := p.Rule()
		if err != nil {
			return nil, err
		}
		if err := system.AddRule(r, system.Len()); err != nil {
			return nil, err
		}
	}
}

// ParseTRS is ReadTRS over a string.
func ParseTRS(sig *trs.Signature, src string) (*trs.TRS, error) {
	return ReadTRS(strings.NewReader(src), sig)
}

// ReadEquations reads "input = output;" pairs until EOF.
func ReadEquations(source io.Reader, sig *trs.Signature) ([]trs.Equation, error) {
	p := NewParser(source, sig)
	var eqs []trs.Equation
	for {
		eof, err := p.AtEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			return eqs, nil
		}
		eq, err := p.Equation()
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
}

// ParseEquations is ReadEquations over a string.
func ParseEquations(sig *trs.Signature, src string) ([]trs.Equation, error) {
	return ReadEquations(strings.NewReader(src), sig)
}
