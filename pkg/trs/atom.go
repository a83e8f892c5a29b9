package trs

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// atomCounter hands out identity tokens. Only identities are global; display
// names come from the caller or from an explicit *Gensym.
var atomCounter atomic.Uint64

func nextAtomID() uint64 {
	return atomCounter.Add(1)
}

// Atom is a symbol that may appear in a Signature: a *Variable or an
// *Operator. Atoms are compared by identity token, never by name.
type Atom interface {
	// ID returns the process-unique identity token.
	ID() uint64

	// Name returns the display name.
	Name() string

	// String renders the atom in the textual syntax.
	String() string

	atom()
}

// Variable is a placeholder leaf. Two variables are the same variable only if
// they share an identity token.
type Variable struct {
	id   uint64
	name string
}

// NewVariable creates a variable with a fresh identity.
func NewVariable(name string) *Variable {
	return &Variable{id: nextAtomID(), name: name}
}

func (v *Variable) ID() uint64     { return v.id }
func (v *Variable) Name() string   { return v.name }
func (v *Variable) String() string { return v.name + "_" }
func (v *Variable) atom()          {}
func (v *Variable) term()          {}

// Equal reports whether other is the same variable.
func (v *Variable) Equal(other Term) bool {
	o, ok := other.(*Variable)
	return ok && o.id == v.id
}

func (v *Variable) IsVar() bool            { return true }
func (v *Variable) Size() int              { return 1 }
func (v *Variable) Depth() int             { return 0 }
func (v *Variable) Variables() []*Variable { return []*Variable{v} }
func (v *Variable) Operators() []*Operator { return nil }
func (v *Variable) Places() []Place        { return []Place{{}} }
func (v *Variable) Subterms() []Term       { return []Term{v} }
func (v *Variable) Head() Atom             { return v }
func (v *Variable) Args() []Term           { return nil }

// Operator is a named symbol with a fixed arity. Arity-0 operators are
// constants.
type Operator struct {
	id    uint64
	name  string
	arity int
}

// NewOperator creates an operator with a fresh identity. A negative arity is
// rejected with a *TRSError.
func NewOperator(name string, arity int) (*Operator, error) {
	if arity < 0 {
		return nil, malformed("new operator "+name, ErrNegativeArity)
	}
	return &Operator{id: nextAtomID(), name: name, arity: arity}, nil
}

// Op is like NewOperator but panics on a negative arity. It is meant for
// fixed signatures declared in code.
func Op(name string, arity int) *Operator {
	op, err := NewOperator(name, arity)
	if err != nil {
		panic(err)
	}
	return op
}

func (o *Operator) ID() uint64   { return o.id }
func (o *Operator) Name() string { return o.name }
func (o *Operator) Arity() int   { return o.arity }
func (o *Operator) atom()        {}

// String renders the operator as it appears in a signature declaration.
func (o *Operator) String() string {
	return o.name + "/" + strconv.Itoa(o.arity)
}

// GoString is used by %#v and includes the identity token.
func (o *Operator) GoString() string {
	return fmt.Sprintf("Operator(%s/%d#%d)", o.name, o.arity, o.id)
}

// GoString is used by %#v and includes the identity token.
func (v *Variable) GoString() string {
	return fmt.Sprintf("Variable(%s#%d)", v.name, v.id)
}

// Gensym generates fresh variable names. Names are deterministic for a given
// prefix and call sequence; identities are still unique.
type Gensym struct {
	prefix string
	next   int
}

// NewGensym returns a generator producing prefix0, prefix1, ...
func NewGensym(prefix string) *Gensym {
	if prefix == "" {
		prefix = "v"
	}
	return &Gensym{prefix: prefix}
}

// Name returns the next fresh name.
func (g *Gensym) Name() string {
	name := g.prefix + strconv.Itoa(g.next)
	g.next++
	return name
}

// Variable returns a new variable carrying the next fresh name.
func (g *Gensym) Variable() *Variable {
	return NewVariable(g.Name())
}
