package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding makes the export
// lossy or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // part of the graph exports as NULL
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Tree     string             // tree name
	Node     string             // node name (empty if tree-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("[%s] tree %s: %s", e.Severity, e.Tree, e.Message)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", e.Severity, e.Tree, e.Node, e.Message)
}

// ValidationResult separates blocking findings from advisory ones.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the structural checks on every tree reachable from s. It is
// read-only. The compiler tolerates everything reported here, so findings
// predict NULL values in the output rather than failures.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateEntities(s)...)
	errs = append(errs, validateGroupNesting(s)...)
	s.Walk(func(t *Tree) {
		errs = append(errs, validateDAG(t)...)
		errs = append(errs, validateLinks(t)...)
		errs = append(errs, validateInterface(t)...)
	})
	return errs
}

// ValidateAll runs Validate and splits the findings by severity.
func ValidateAll(s *Scene) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(s) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

func validateEntities(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, e := range s.Entities {
		if !e.Tree.Contains(e.Root) {
			errs = append(errs, ValidationError{
				Tree:     e.Tree.Name,
				Message:  fmt.Sprintf("entity %q root is not in its tree", e.Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDAG checks the link graph for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully
// explored. Edges run from a node to the producers of its inputs.
func validateDAG(t *Tree) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Node]int)
	var errs []ValidationError

	var visit func(n *Node) bool // returns true if cycle found
	visit = func(n *Node) bool {
		switch color[n] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Tree:     t.Name,
				Node:     n.Name,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", n.Name),
				Severity: SeverityError,
			})
			return true
		}

		color[n] = gray
		for _, in := range n.Inputs {
			if in.Link == nil || in.Link.From == nil {
				continue
			}
			producer := in.Link.From.node
			if !t.Contains(producer) {
				// Dangling; handled by validateLinks.
				continue
			}
			if visit(producer) {
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, n := range t.Nodes {
		if color[n] == white {
			if visit(n) {
				// One cycle per tree is enough.
				break
			}
		}
	}
	return errs
}

// validateLinks checks that every link joins sockets of this tree and that
// the categories agree.
func validateLinks(t *Tree) []ValidationError {
	var errs []ValidationError
	for _, l := range t.Links {
		if l.From == nil || l.To == nil || !t.Contains(l.From.node) || !t.Contains(l.To.node) {
			errs = append(errs, ValidationError{
				Tree:     t.Name,
				Message:  "link references a node outside the tree",
				Severity: SeverityError,
			})
			continue
		}
		if l.To.Link != l {
			errs = append(errs, ValidationError{
				Tree:     t.Name,
				Node:     l.To.node.Name,
				Message:  fmt.Sprintf("input %q has a stale link", l.To.Name),
				Severity: SeverityWarning,
			})
		}
		if !l.To.Category.Accepts(l.From.Category) {
			errs = append(errs, ValidationError{
				Tree: t.Name,
				Node: l.To.node.Name,
				Message: fmt.Sprintf("input %q (%s) is fed by %s (%s)",
					l.To.Name, l.To.Category, l.From, l.From.Category),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateInterface(t *Tree) []ValidationError {
	var errs []ValidationError
	var inputs, outputs int
	for _, n := range t.Nodes {
		switch n.Type {
		case TypeGroupInput:
			inputs++
		case TypeGroupOutput:
			outputs++
		case TypeGroup:
			if n.Group == nil {
				errs = append(errs, ValidationError{
					Tree:     t.Name,
					Node:     n.Name,
					Message:  "group node has no tree",
					Severity: SeverityError,
				})
			}
		}
	}
	if inputs > 1 || outputs > 1 {
		errs = append(errs, ValidationError{
			Tree:     t.Name,
			Message:  "more than one group input or output node; only the first is used",
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateGroupNesting rejects trees that embed themselves through group
// nodes, using the same 3-color walk over the tree containment graph.
func validateGroupNesting(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)
	color := make(map[*Tree]int)
	var errs []ValidationError

	var visit func(t *Tree)
	visit = func(t *Tree) {
		color[t] = gray
		for _, n := range t.Nodes {
			if n.Group == nil {
				continue
			}
			switch color[n.Group] {
			case gray:
				errs = append(errs, ValidationError{
					Tree:     t.Name,
					Node:     n.Name,
					Message:  fmt.Sprintf("group embeds tree %q recursively", n.Group.Name),
					Severity: SeverityError,
				})
			case white:
				visit(n.Group)
			}
		}
		color[t] = black
	}
	for _, t := range s.Trees {
		if color[t] == white {
			visit(t)
		}
	}
	return errs
}
