package trs

import (
	"errors"
	"fmt"
)

// Malformed-structure causes. These are wrapped in a *TRSError.
var (
	ErrArity         = errors.New("argument count does not match operator arity")
	ErrNegativeArity = errors.New("operator arity must be non-negative")
	ErrVariableLHS   = errors.New("rule left-hand side is a variable")
	ErrEmptyRHS      = errors.New("rule has no right-hand side")
	ErrFreeVariable  = errors.New("right-hand side introduces a variable absent from the left-hand side")
	ErrUnknownAtom   = errors.New("atom is not in the signature")
	ErrIndex         = errors.New("rule index out of range")
)

// Substitution causes. These are wrapped in a *SubstitutionError.
var (
	ErrNilSubstitution = errors.New("substitution is nil")
	ErrUnboundVariable = errors.New("variable is not bound by the substitution")
)

// Generation causes. These are wrapped in a *GenerationError.
var (
	ErrNoTerminals              = errors.New("no terminal atom available and invention disabled")
	ErrNoOperators              = errors.New("signature has no operators")
	ErrConstraintNotInSignature = errors.New("constraint atoms are not a subset of the signature")
	ErrUnsatisfiable            = errors.New("constraints cannot be placed within the depth bound")
	ErrTooManyConstraints       = errors.New("too many constraint atoms")
	ErrProbability              = errors.New("probability must be in [0, 1)")
)

// TRSError reports a malformed term, rule or rewrite system. It is a caller
// error and is returned at construction time.
type TRSError struct {
	Op  string
	Err error
}

func (e *TRSError) Error() string {
	return fmt.Sprintf("trs: %s: %v", e.Op, e.Err)
}

func (e *TRSError) Unwrap() error { return e.Err }

// SubstitutionError reports a strict substitution that could not be applied.
type SubstitutionError struct {
	Variable *Variable
	Err      error
}

func (e *SubstitutionError) Error() string {
	if e.Variable == nil {
		return fmt.Sprintf("trs: substitute: %v", e.Err)
	}
	return fmt.Sprintf("trs: substitute %s: %v", e.Variable, e.Err)
}

func (e *SubstitutionError) Unwrap() error { return e.Err }

// GenerationError aborts a single sampling call whose configuration cannot
// produce a value. Callers decide whether to retry with other parameters.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("trs: %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func malformed(op string, err error) error {
	return &TRSError{Op: op, Err: err}
}

func generationFailed(op string, err error) error {
	generationErrors.WithLabelValues(op).Inc()
	return &GenerationError{Op: op, Err: err}
}
