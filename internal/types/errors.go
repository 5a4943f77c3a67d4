package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

var (
	// ErrFrozen is returned when a frozen loader is asked to construct or freeze again
	ErrFrozen = errors.New("class table is frozen")
	// ErrLoaderBroken wraps every call to a loader that has seen a cycle
	ErrLoaderBroken = errors.New("class table is unusable")
)

// ClassNotFoundError reports a class name that was never declared or loaded
type ClassNotFoundError struct {
	Name ast.ClassName
	Err  error // from the authority, when it was asked
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", string(e.Name))
}

func (e *ClassNotFoundError) Unwrap() error { return e.Err }

// ExpressionError reports an expression that could not be resolved
type ExpressionError struct {
	Expression *ast.Expression
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("can't resolve %s: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// BadExpressionError reports an argument that fits none of the open slots, or a
// refinement that does not survive a round trip through text
type BadExpressionError struct {
	Expression *ast.Expression
	Reason     string
	Slots      []string // open slots at the time, as `Key=Bound`
}

func (e *BadExpressionError) Error() string {
	msg := fmt.Sprintf("bad expression %s: %s", e.Expression, e.Reason)
	if len(e.Slots) > 0 {
		msg += " (open slots: " + strings.Join(e.Slots, ", ") + ")"
	}
	return msg
}

// CycleError reports a class that is its own supertype
type CycleError struct {
	Path []ast.ClassName // first and last are the same class
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Path))
	for i, n := range e.Path {
		names[i] = string(n)
	}
	return "supertype cycle: " + strings.Join(names, " -> ")
}

// ReentrancyError reports a derived value that depends on itself
type ReentrancyError struct {
	What string
}

func (e *ReentrancyError) Error() string {
	return "reentrant computation of " + e.What
}

// DependencyConflictError reports supertypes that bind one slot incompatibly
type DependencyConflictError struct {
	Class     ast.ClassName
	Supertype string
	Existing  string
}

func (e *DependencyConflictError) Error() string {
	return fmt.Sprintf("class %s: dependencies of supertype %s conflict with %s",
		string(e.Class), e.Supertype, e.Existing)
}

// DefaultsConflictError reports inherited defaults that cannot be merged
type DefaultsConflictError struct {
	Class ast.ClassName
	Kind  declaration.DefaultKind
	What  string
}

func (e *DefaultsConflictError) Error() string {
	return fmt.Sprintf("class %s: conflicting %s defaults: %s", string(e.Class), e.Kind, e.What)
}
