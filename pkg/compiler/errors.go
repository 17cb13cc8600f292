package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies graph errors. Both kinds are recoverable: the
// affected value exports as NULL and the pass continues.
type ErrorKind int

const (
	// UnresolvedReference is a link or value that cannot be resolved, such
	// as a dangling link or a socket category mismatch.
	UnresolvedReference ErrorKind = iota
	// RecoverableGraphError is a structural fault, such as a cycle.
	RecoverableGraphError
)

func (k ErrorKind) String() string {
	switch k {
	case UnresolvedReference:
		return "unresolved reference"
	case RecoverableGraphError:
		return "graph error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	ErrCycle          = errors.New("cycle")
	ErrRecursiveGroup = errors.New("group embeds itself")
	ErrDangling       = errors.New("dangling link")
	ErrCategory       = errors.New("category mismatch")
	ErrNoMeshes       = errors.New("no mesh source")
	ErrScope          = errors.New("group input outside a group")
	ErrInterface      = errors.New("socket missing from group interface")
	ErrValueKind      = errors.New("unexpected value kind")
)

// GraphError locates a recoverable fault in a node graph.
type GraphError struct {
	Kind   ErrorKind
	Tree   string
	Node   string
	Socket string
	Err    error
}

func (e *GraphError) Error() string {
	loc := e.Tree + "/" + e.Node
	if e.Socket != "" {
		loc += "." + e.Socket
	}
	return fmt.Sprintf("compiler: %s at %s: %v", e.Kind, loc, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

// Recoverable reports whether err is nil or consists only of GraphErrors,
// meaning the output is complete apart from NULL values.
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	if _, ok := err.(*GraphError); ok {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !Recoverable(e) {
				return false
			}
		}
		return true
	}
	return false
}

// GraphErrors flattens err into its GraphErrors.
func GraphErrors(err error) []*GraphError {
	var out []*GraphError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ge, ok := err.(*GraphError); ok {
			out = append(out, ge)
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		if next := errors.Unwrap(err); next != nil {
			walk(next)
		}
	}
	walk(err)
	return out
}
