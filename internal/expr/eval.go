// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package expr

import (
	"strings"

	"github.com/samber/oops"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueStr ValueKind = iota
	ValueStrList
	ValueBool
)

// Value is the tagged runtime result of evaluating a node. No widening or
// implicit coercion is ever performed between variants.
type Value struct {
	Kind ValueKind
	Str  string
	List []string
	Bool bool
}

func strValue(s string) Value    { return Value{Kind: ValueStr, Str: s} }
func listValue(l []string) Value { return Value{Kind: ValueStrList, List: l} }
func boolValue(b bool) Value     { return Value{Kind: ValueBool, Bool: b} }

// HeaderSource is the minimal read-only view of request attributes the
// evaluator needs. *reqctx.RequestContext satisfies this interface; tests
// may supply a lighter stand-in.
type HeaderSource interface {
	Method() string
	Path() string
	Host() string
	Header(name string) string
	HeaderValues(name string) []string
	HeaderList(name string) []string
}

// Eval runs the compiled program against ctx and returns the boolean
// result. A non-boolean root value can only happen if the type checker
// has a bug — the program is guaranteed well-typed by Compile — so this
// is treated as an internal evaluation error, never a user-facing one.
func (p *Program) Eval(ctx HeaderSource) (bool, error) {
	val, err := evalNode(p.root, ctx)
	if err != nil {
		return false, err
	}
	if val.Kind != ValueBool {
		return false, oops.Code("EVAL_ERROR").In("expr.eval").
			Errorf("expression did not evaluate to boolean")
	}
	return val.Bool, nil
}

func evalNode(n *Node, ctx HeaderSource) (Value, error) {
	switch n.Kind {
	case NodeBoolLiteral:
		return boolValue(n.BoolLiteral), nil

	case NodeStringLiteral:
		return strValue(n.StringLiteral), nil

	case NodeIdent:
		switch n.IdentRef {
		case IdentMethod:
			return strValue(ctx.Method()), nil
		case IdentPath:
			return strValue(ctx.Path()), nil
		case IdentHost:
			return strValue(ctx.Host()), nil
		}
		return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("unknown identifier")

	case NodeBinaryOp:
		return evalBinaryOp(n, ctx)

	case NodeRegexMatch:
		left, err := evalNode(n.Left, ctx)
		if err != nil {
			return Value{}, err
		}
		return boolValue(n.Regex.MatchString(left.Str)), nil

	case NodeAnd:
		left, err := evalNode(n.AndLeft, ctx)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != ValueBool {
			return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("AND operator requires boolean operands")
		}
		if !left.Bool {
			return boolValue(false), nil // short-circuit
		}
		right, err := evalNode(n.AndRight, ctx)
		if err != nil {
			return Value{}, err
		}
		if right.Kind != ValueBool {
			return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("AND operator requires boolean operands")
		}
		return right, nil

	case NodeOr:
		left, err := evalNode(n.OrLeft, ctx)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != ValueBool {
			return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("OR operator requires boolean operands")
		}
		if left.Bool {
			return boolValue(true), nil // short-circuit
		}
		right, err := evalNode(n.OrRight, ctx)
		if err != nil {
			return Value{}, err
		}
		if right.Kind != ValueBool {
			return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("OR operator requires boolean operands")
		}
		return right, nil

	case NodeNot:
		val, err := evalNode(n.NotChild, ctx)
		if err != nil {
			return Value{}, err
		}
		if val.Kind != ValueBool {
			return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("NOT operator requires boolean operand")
		}
		return boolValue(!val.Bool), nil

	case NodeFuncCall:
		return evalFuncCall(n, ctx)

	default:
		return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("cannot evaluate node kind %d", int(n.Kind))
	}
}

func evalBinaryOp(n *Node, ctx HeaderSource) (Value, error) {
	left, err := evalNode(n.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := evalNode(n.Right, ctx)
	if err != nil {
		return Value{}, err
	}

	switch n.BinOp {
	case OpEq:
		return boolValue(left.Str == right.Str), nil
	case OpNeq:
		return boolValue(left.Str != right.Str), nil
	case OpStartsWith:
		return boolValue(strings.HasPrefix(left.Str, right.Str)), nil
	case OpEndsWith:
		return boolValue(strings.HasSuffix(left.Str, right.Str)), nil
	case OpContains:
		return boolValue(stringSliceContains(left.List, right.Str)), nil
	default:
		return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").Errorf("type mismatch in binary operator %s", n.BinOp)
	}
}

func evalFuncCall(n *Node, ctx HeaderSource) (Value, error) {
	switch n.FuncName {
	case "header":
		name, err := evalNode(n.FuncArgs[0], ctx)
		if err != nil {
			return Value{}, err
		}
		return strValue(ctx.Header(name.Str)), nil

	case "headerValues":
		name, err := evalNode(n.FuncArgs[0], ctx)
		if err != nil {
			return Value{}, err
		}
		return listValue(ctx.HeaderValues(name.Str)), nil

	case "headerList":
		name, err := evalNode(n.FuncArgs[0], ctx)
		if err != nil {
			return Value{}, err
		}
		return listValue(ctx.HeaderList(name.Str)), nil

	case "anyOf":
		list, err := evalNode(n.FuncArgs[0], ctx)
		if err != nil {
			return Value{}, err
		}
		for _, argNode := range n.FuncArgs[1:] {
			item, err := evalNode(argNode, ctx)
			if err != nil {
				return Value{}, err
			}
			if stringSliceContains(list.List, item.Str) {
				return boolValue(true), nil
			}
		}
		return boolValue(false), nil

	case "allOf":
		list, err := evalNode(n.FuncArgs[0], ctx)
		if err != nil {
			return Value{}, err
		}
		for _, argNode := range n.FuncArgs[1:] {
			item, err := evalNode(argNode, ctx)
			if err != nil {
				return Value{}, err
			}
			if !stringSliceContains(list.List, item.Str) {
				return boolValue(false), nil
			}
		}
		return boolValue(true), nil

	default:
		return Value{}, oops.Code("EVAL_ERROR").In("expr.eval").
			With("function", n.FuncName).
			Errorf("unknown function %q", n.FuncName)
	}
}

func stringSliceContains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
