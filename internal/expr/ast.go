// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package expr

import (
	"fmt"
	"regexp"
	"strings"
)

// BinOp tags the operator of a BinaryOp node.
type BinOp int

const (
	OpEq BinOp = iota
	OpNeq
	OpStartsWith
	OpEndsWith
	OpContains
	OpMatches
)

func (op BinOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpStartsWith:
		return "startsWith"
	case OpEndsWith:
		return "endsWith"
	case OpContains:
		return "contains"
	case OpMatches:
		return "matches"
	default:
		return "unknown"
	}
}

// Ident tags a built-in request-attribute identifier.
type Ident int

const (
	IdentMethod Ident = iota
	IdentPath
	IdentHost
)

func (id Ident) String() string {
	switch id {
	case IdentMethod:
		return "method"
	case IdentPath:
		return "path"
	case IdentHost:
		return "host"
	default:
		return "unknown"
	}
}

// builtinIdents maps an identifier's source text to its Ident tag.
var builtinIdents = map[string]Ident{
	"method": IdentMethod,
	"path":   IdentPath,
	"host":   IdentHost,
}

// Node is the tagged variant for every AST expression node. Exactly one
// of the typed fields below is populated per node kind, discriminated by
// Kind. This mirrors the original expression language's sum type without
// a virtual hierarchy: the compiler and evaluator both switch on Kind.
type Node struct {
	Kind NodeKind

	BoolLiteral   bool
	StringLiteral string
	IdentRef      Ident

	FuncName string
	FuncArgs []*Node

	BinOp       BinOp
	Left, Right *Node

	NotChild *Node
	AndLeft  *Node
	AndRight *Node
	OrLeft   *Node
	OrRight  *Node

	// Regex is populated only on a regexMatchNode, the compiler-introduced
	// variant that replaces every BinaryOp{Matches,...} after compilation.
	Regex *regexp.Regexp
}

// NodeKind discriminates which fields of a Node are meaningful.
type NodeKind int

const (
	NodeBoolLiteral NodeKind = iota
	NodeStringLiteral
	NodeIdent
	NodeFuncCall
	NodeBinaryOp
	NodeNot
	NodeAnd
	NodeOr
	NodeRegexMatch
)

// String renders the node as expression source, used to support the
// parser round-trip-typing testable property: reparsing this text yields
// an AST equal to the original modulo the regex-match rewrite.
func (n *Node) String() string {
	switch n.Kind {
	case NodeBoolLiteral:
		if n.BoolLiteral {
			return "true"
		}
		return "false"
	case NodeStringLiteral:
		return quoteLiteral(n.StringLiteral)
	case NodeIdent:
		return n.IdentRef.String()
	case NodeFuncCall:
		args := make([]string, len(n.FuncArgs))
		for i, a := range n.FuncArgs {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", n.FuncName, strings.Join(args, ", "))
	case NodeBinaryOp:
		return fmt.Sprintf("(%s %s %s)", n.Left, n.BinOp, n.Right)
	case NodeNot:
		return fmt.Sprintf("NOT %s", n.NotChild)
	case NodeAnd:
		return fmt.Sprintf("(%s AND %s)", n.AndLeft, n.AndRight)
	case NodeOr:
		return fmt.Sprintf("(%s OR %s)", n.OrLeft, n.OrRight)
	case NodeRegexMatch:
		return fmt.Sprintf("(%s matches %s)", n.Left, quoteLiteral(n.Regex.String()))
	default:
		return "<invalid node>"
	}
}

// quoteLiteral renders s as a string literal the lexer decodes back to s:
// only backslashes and double quotes are escaped, every other character
// is written as is.
func quoteLiteral(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func boolLiteralNode(b bool) *Node     { return &Node{Kind: NodeBoolLiteral, BoolLiteral: b} }
func stringLiteralNode(s string) *Node { return &Node{Kind: NodeStringLiteral, StringLiteral: s} }
func identNode(id Ident) *Node         { return &Node{Kind: NodeIdent, IdentRef: id} }
func funcCallNode(name string, args []*Node) *Node {
	return &Node{Kind: NodeFuncCall, FuncName: name, FuncArgs: args}
}
func binaryOpNode(op BinOp, left, right *Node) *Node {
	return &Node{Kind: NodeBinaryOp, BinOp: op, Left: left, Right: right}
}
func notNode(child *Node) *Node       { return &Node{Kind: NodeNot, NotChild: child} }
func andNode(left, right *Node) *Node { return &Node{Kind: NodeAnd, AndLeft: left, AndRight: right} }
func orNode(left, right *Node) *Node  { return &Node{Kind: NodeOr, OrLeft: left, OrRight: right} }
