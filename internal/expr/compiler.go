// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package expr

import (
	"regexp"

	"github.com/samber/oops"
)

// Type is the static type assigned to every AST node by the compiler.
type Type int

const (
	TypeStr Type = iota
	TypeStrList
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeStr:
		return "string"
	case TypeStrList:
		return "[]string"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Program is a compiled, type-checked expression ready for repeated
// evaluation against distinct request contexts. It is immutable after
// Compile returns and safe to share across concurrently evaluated
// requests: nothing in it is ever mutated post-construction.
type Program struct {
	root *Node
}

// Compile parses, type-checks, and pre-compiles regex literals in a
// single pipeline, rejecting any program whose root type is not Bool.
func Compile(source string) (*Program, error) {
	root, err := Parse(source)
	if err != nil {
		builder := oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "parse")
		if parseErr, ok := err.(*ParseError); ok {
			builder = builder.With("tokenIndex", parseErr.TokenIndex)
		}
		return nil, builder.Wrapf(err, "parse error")
	}

	typ, rewritten, err := typeCheck(root)
	if err != nil {
		return nil, err
	}
	if typ != TypeBool {
		return nil, oops.Code("COMPILE_ERROR").In("expr.compile").
			With("stage", "typecheck").
			Errorf("top-level expression must be boolean, got %s", typ)
	}

	return &Program{root: rewritten}, nil
}

// typeCheck performs a single bottom-up pass, returning the node's type
// and a possibly-rewritten node so regex pre-compilation can replace a
// subtree without a second traversal.
func typeCheck(n *Node) (Type, *Node, error) {
	switch n.Kind {
	case NodeBoolLiteral:
		return TypeBool, n, nil

	case NodeStringLiteral:
		return TypeStr, n, nil

	case NodeIdent:
		return TypeStr, n, nil

	case NodeBinaryOp:
		return typeCheckBinaryOp(n)

	case NodeAnd:
		leftType, left, err := typeCheck(n.AndLeft)
		if err != nil {
			return 0, nil, err
		}
		rightType, right, err := typeCheck(n.AndRight)
		if err != nil {
			return 0, nil, err
		}
		if leftType != TypeBool {
			return 0, nil, typeErr("AND operator requires bool operands, got %s on left", leftType)
		}
		if rightType != TypeBool {
			return 0, nil, typeErr("AND operator requires bool operands, got %s on right", rightType)
		}
		return TypeBool, andNode(left, right), nil

	case NodeOr:
		leftType, left, err := typeCheck(n.OrLeft)
		if err != nil {
			return 0, nil, err
		}
		rightType, right, err := typeCheck(n.OrRight)
		if err != nil {
			return 0, nil, err
		}
		if leftType != TypeBool {
			return 0, nil, typeErr("OR operator requires bool operands, got %s on left", leftType)
		}
		if rightType != TypeBool {
			return 0, nil, typeErr("OR operator requires bool operands, got %s on right", rightType)
		}
		return TypeBool, orNode(left, right), nil

	case NodeNot:
		childType, child, err := typeCheck(n.NotChild)
		if err != nil {
			return 0, nil, err
		}
		if childType != TypeBool {
			return 0, nil, typeErr("NOT operator requires bool operand, got %s", childType)
		}
		return TypeBool, notNode(child), nil

	case NodeFuncCall:
		return typeCheckFuncCall(n)

	default:
		return 0, nil, typeErr("cannot type-check node kind %d", int(n.Kind))
	}
}

func typeErr(format string, args ...any) error {
	return oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").Errorf(format, args...)
}

// typeCheckBinaryOp handles every BinaryOp node, including the
// security-critical matches rewrite into a regex-match node.
func typeCheckBinaryOp(n *Node) (Type, *Node, error) {
	leftType, left, err := typeCheck(n.Left)
	if err != nil {
		return 0, nil, err
	}

	switch n.BinOp {
	case OpEq, OpNeq, OpStartsWith, OpEndsWith:
		rightType, right, err := typeCheck(n.Right)
		if err != nil {
			return 0, nil, err
		}
		if leftType != TypeStr {
			return 0, nil, typeErr("operator %s requires string operands, got %s on left", n.BinOp, leftType)
		}
		if rightType != TypeStr {
			return 0, nil, typeErr("operator %s requires string operands, got %s on right", n.BinOp, rightType)
		}
		return TypeBool, binaryOpNode(n.BinOp, left, right), nil

	case OpContains:
		rightType, right, err := typeCheck(n.Right)
		if err != nil {
			return 0, nil, err
		}
		if leftType != TypeStrList {
			return 0, nil, typeErr("operator contains requires []string as first operand, got %s", leftType)
		}
		if rightType != TypeStr {
			return 0, nil, typeErr("operator contains requires string as second operand, got %s", rightType)
		}
		return TypeBool, binaryOpNode(OpContains, left, right), nil

	case OpMatches:
		return typeCheckMatches(n, leftType, left)

	default:
		return 0, nil, typeErr("unknown binary operator %s", n.BinOp)
	}
}

// typeCheckMatches enforces the literal-only pattern rule: the right-hand
// side of matches must be a string literal, never a dynamic expression.
func typeCheckMatches(n *Node, leftType Type, left *Node) (Type, *Node, error) {
	if leftType != TypeStr {
		return 0, nil, typeErr("operator matches requires string operands, got %s on left", leftType)
	}
	if n.Right.Kind != NodeStringLiteral {
		return 0, nil, oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").
			Errorf("operator matches requires a string literal pattern, not a dynamic expression")
	}

	pattern := n.Right.StringLiteral
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, nil, oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").
			With("pattern", pattern).
			Errorf("Invalid regex pattern %q: %s", pattern, err)
	}

	return TypeBool, &Node{Kind: NodeRegexMatch, Left: left, Regex: re}, nil
}

// typeCheckFuncCall type-checks the fixed set of built-in functions.
// contains never reaches here as a FuncCall: the parser always produces
// a BinaryOp for contains(list, item), per the grammar in §4.2.
func typeCheckFuncCall(n *Node) (Type, *Node, error) {
	switch n.FuncName {
	case "header":
		return typeCheckUnaryStringFunc(n, TypeStr)
	case "headerValues":
		return typeCheckUnaryStringFunc(n, TypeStrList)
	case "headerList":
		return typeCheckUnaryStringFunc(n, TypeStrList)
	case "anyOf", "allOf":
		return typeCheckVariadicListFunc(n)
	default:
		return 0, nil, oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").
			With("function", n.FuncName).
			Errorf("unknown function %q", n.FuncName)
	}
}

func typeCheckUnaryStringFunc(n *Node, result Type) (Type, *Node, error) {
	if len(n.FuncArgs) != 1 {
		return 0, nil, oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").
			Errorf("function %q expects 1 argument, got %d", n.FuncName, len(n.FuncArgs))
	}
	argType, arg, err := typeCheck(n.FuncArgs[0])
	if err != nil {
		return 0, nil, err
	}
	if argType != TypeStr {
		return 0, nil, typeErr("function %q expects string argument, got %s", n.FuncName, argType)
	}
	return result, funcCallNode(n.FuncName, []*Node{arg}), nil
}

func typeCheckVariadicListFunc(n *Node) (Type, *Node, error) {
	if len(n.FuncArgs) < 2 {
		return 0, nil, oops.Code("COMPILE_ERROR").In("expr.compile").With("stage", "typecheck").
			Errorf("function %q expects at least 2 arguments, got %d", n.FuncName, len(n.FuncArgs))
	}

	listType, listArg, err := typeCheck(n.FuncArgs[0])
	if err != nil {
		return 0, nil, err
	}
	if listType != TypeStrList {
		return 0, nil, typeErr("function %q expects []string as first argument, got %s", n.FuncName, listType)
	}

	args := make([]*Node, len(n.FuncArgs))
	args[0] = listArg
	for i, raw := range n.FuncArgs[1:] {
		argType, arg, err := typeCheck(raw)
		if err != nil {
			return 0, nil, err
		}
		if argType != TypeStr {
			return 0, nil, typeErr("function %q expects string arguments, got %s at position %d", n.FuncName, argType, i+2)
		}
		args[i+1] = arg
	}

	return TypeBool, funcCallNode(n.FuncName, args), nil
}
