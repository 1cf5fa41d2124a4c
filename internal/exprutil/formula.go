// Package exprutil hosts the sandboxed expression-grammar support shared by
// the graph builder (identifier extraction, §4.2) and the calculation
// engine (compiled-program caching and evaluation, §4.4). It is the only
// package that parses, compiles or runs formulas with
// github.com/expr-lang/expr (internal/calc imports only its vm.Program
// type for caching), so the allowed
// grammar subset (§6.4: literals, names, unary +/-, binary + - * / **,
// comparison, ternary, parentheses — no calls, no member/index access, no
// comprehensions) is enforced in exactly one place.
package exprutil

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// reserved holds identifier-shaped tokens that are part of the grammar's
// literal vocabulary rather than node references, mirroring the
// Python-keyword filtering spec.md §4.2 describes for the original grammar.
var reserved = map[string]struct{}{
	"true":  {},
	"false": {},
	"nil":   {},
}

// Parse parses a formula string using the expression grammar and validates
// that it only uses the allowed subset (§6.4). It fails with
// CodeInvalidFormula on any parse error or disallowed construct.
func Parse(formula string) (*parser.Tree, error) {
	tree, err := parser.Parse(formula)
	if err != nil {
		return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula,
			fmt.Sprintf("failed to parse formula %q", formula), err)
	}
	if err := validateSubset(tree.Node); err != nil {
		return nil, err
	}
	return tree, nil
}

// validateSubset walks the parsed AST and rejects any node kind outside
// §6.4's allowed grammar: no function calls, no attribute/member access, no
// subscription/indexing, no comprehensions, no assignment, no closures.
func validateSubset(node ast.Node) error {
	var walkErr error
	ast.Walk(&node, visitorFunc(func(n ast.Node) {
		if walkErr != nil {
			return
		}
		switch n.(type) {
		case *ast.IdentifierNode, *ast.IntegerNode, *ast.FloatNode,
			*ast.BoolNode, *ast.NilNode,
			*ast.UnaryNode, *ast.BinaryNode, *ast.ConditionalNode,
			*ast.ChainNode:
			// allowed
		default:
			walkErr = fsmerrors.New(fsmerrors.CodeInvalidFormula,
				fmt.Sprintf("disallowed expression construct %T", n), nil)
		}
	}))
	return walkErr
}

type visitorFunc func(ast.Node)

func (f visitorFunc) Visit(node *ast.Node) {
	f(*node)
}

// Identifiers extracts the set of variable names referenced by formula,
// excluding reserved literal-like tokens (true/false/nil). This is the
// "walk the parsed AST and collect identifier names minus reserved
// keywords" rule from spec.md §3's Node invariants.
func Identifiers(formula string) (map[string]struct{}, error) {
	tree, err := Parse(formula)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	ast.Walk(&tree.Node, visitorFunc(func(n ast.Node) {
		id, ok := n.(*ast.IdentifierNode)
		if !ok {
			return
		}
		if _, isReserved := reserved[id.Value]; isReserved {
			return
		}
		names[id.Value] = struct{}{}
	}))
	return names, nil
}

// Compile compiles formula into a reusable program. Compilation is
// independent of any particular environment's variable values; the engine
// caches the resulting *vm.Program by formula text (§4.4).
func Compile(formula string) (*vm.Program, error) {
	if _, err := Parse(formula); err != nil {
		return nil, err
	}

	program, err := expr.Compile(formula, expr.Env(map[string]float64{}))
	if err != nil {
		// Fall back to an untyped environment for formulas that reference
		// names expr's float64-typed Env can't resolve statically.
		program, err = expr.Compile(formula)
		if err != nil {
			return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula,
				fmt.Sprintf("failed to compile formula %q", formula), err)
		}
	}
	return program, nil
}

// Eval runs a compiled program against env (name -> numeric value) in
// expr's sandbox: no function calls, no builtins, no access to host
// capabilities, only the numeric/comparison operators validated by Parse.
func Eval(program *vm.Program, env map[string]float64) (float64, error) {
	anyEnv := make(map[string]any, len(env))
	for k, v := range env {
		anyEnv[k] = v
	}

	result, err := expr.Run(program, anyEnv)
	if err != nil {
		return 0, fsmerrors.New(fsmerrors.CodeEvalError,
			"formula evaluation failed", err)
	}

	return toFloat(result)
}

// toFloat converts expr's result (float64, int, int64, or bool from a
// comparison/ternary) into the engine's float64 value domain.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fsmerrors.New(fsmerrors.CodeEvalError,
			fmt.Sprintf("formula produced non-numeric result of type %T", v), nil)
	}
}

// IsFiniteFloat reports whether f is neither NaN nor +/-Inf.
func IsFiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
