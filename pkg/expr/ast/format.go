package ast

import (
	"fmt"
	"strconv"
	"strings"
)

var binarySymbols = map[Kind]string{
	KindAdd: "+", KindSubtract: "-", KindMultiply: "*", KindDivide: "/",
	KindModulo: "%", KindPower: "**", KindAnd: "&", KindOr: "|",
	KindExclusiveOr: "^", KindAndAlso: "&&", KindOrElse: "||",
	KindLeftShift: "<<", KindRightShift: ">>", KindEqual: "==",
	KindNotEqual: "!=", KindLessThan: "<", KindLessThanOrEqual: "<=",
	KindGreaterThan: ">", KindGreaterThanOrEqual: ">=", KindCoalesce: "??",
	KindAssign: "=", KindAddAssign: "+=", KindSubtractAssign: "-=",
	KindMultiplyAssign: "*=", KindDivideAssign: "/=", KindModuloAssign: "%=",
	KindPowerAssign: "**=", KindAndAssign: "&=", KindOrAssign: "|=",
	KindExclusiveOrAssign: "^=", KindLeftShiftAssign: "<<=",
	KindRightShiftAssign: ">>=",
}

// precedence of binary operators; higher binds tighter.
func precedence(k Kind) int {
	switch k {
	case KindCoalesce:
		return 1
	case KindOrElse:
		return 2
	case KindAndAlso:
		return 3
	case KindOr:
		return 4
	case KindExclusiveOr:
		return 5
	case KindAnd:
		return 6
	case KindEqual, KindNotEqual:
		return 7
	case KindLessThan, KindLessThanOrEqual, KindGreaterThan, KindGreaterThanOrEqual:
		return 8
	case KindLeftShift, KindRightShift:
		return 9
	case KindAdd, KindSubtract:
		return 10
	case KindMultiply, KindDivide, KindModulo:
		return 11
	case KindPower:
		return 12
	}
	return 0 // assignments
}

// Format renders node as a single line of C-like source text.
// Parameters print by name, so two distinct parameters named "x" look alike;
// use FormatWithIDs to tell them apart.
func Format(node Node) string {
	p := &printer{}
	p.node(node)
	return p.sb.String()
}

// FormatWithIDs is like Format but suffixes every parameter with the short
// form of its identity, e.g. "x#1f0c2a9b".
func FormatWithIDs(node Node) string {
	p := &printer{ids: true}
	p.node(node)
	return p.sb.String()
}

type printer struct {
	sb  strings.Builder
	ids bool
}

func (p *printer) write(parts ...string) {
	for _, s := range parts {
		p.sb.WriteString(s)
	}
}

func (p *printer) list(nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			p.write(", ")
		}
		p.node(n)
	}
}

// operand prints a binary operand, parenthesized when it binds looser
// than its parent.
func (p *printer) operand(n Node, parent int, right bool) {
	paren := false
	switch c := n.(type) {
	case *Binary:
		if c.Op != KindArrayIndex {
			prec := precedence(c.Op)
			paren = prec < parent || (right && prec == parent)
		}
	case *Conditional, *Lambda:
		paren = true
	}
	if paren {
		p.write("(")
		p.node(n)
		p.write(")")
		return
	}
	p.node(n)
}

func (p *printer) node(node Node) {
	if IsNil(node) {
		p.write("<nil>")
		return
	}

	switch n := node.(type) {
	case *Binary:
		if n.Checked {
			p.write("checked(")
			defer p.write(")")
		}
		if n.Op == KindArrayIndex {
			p.operand(n.Left, 13, false)
			p.write("[")
			p.node(n.Right)
			p.write("]")
			return
		}
		prec := precedence(n.Op)
		p.operand(n.Left, prec, false)
		p.write(" ", binarySymbols[n.Op], " ")
		p.operand(n.Right, prec, true)
	case *Unary:
		p.unary(n)
	case *TypeBinary:
		if n.Op == KindTypeEqual {
			p.write("typeof(")
			p.node(n.Expr)
			p.write(") == ", string(n.TypeOperand))
			return
		}
		p.operand(n.Expr, 13, false)
		p.write(" is ", string(n.TypeOperand))
	case *Call:
		switch {
		case n.Object != nil:
			p.operand(n.Object, 13, false)
			p.write(".")
		case n.Method.DeclaringType != "":
			p.write(string(n.Method.DeclaringType), ".")
		}
		p.write(n.Method.Name, "(")
		p.list(n.Args)
		p.write(")")
	case *Invoke:
		p.operand(n.Target, 13, false)
		p.write("(")
		p.list(n.Args)
		p.write(")")
	case *Member:
		switch {
		case n.Object != nil:
			p.operand(n.Object, 13, false)
			p.write(".")
		case n.Member.DeclaringType != "":
			p.write(string(n.Member.DeclaringType), ".")
		}
		p.write(n.Member.Name)
	case *New:
		p.newExpr(n)
	case *NewArray:
		if n.Op == KindNewArrayBounds {
			p.write("new ", string(n.ElementType))
			for _, b := range n.Exprs {
				p.write("[")
				p.node(b)
				p.write("]")
			}
			return
		}
		p.write("[]", string(n.ElementType), "{")
		p.list(n.Exprs)
		p.write("}")
	case *ListInit:
		p.newExpr(n.New)
		p.write(" {")
		p.inits(n.Initializers)
		p.write("}")
	case *MemberInit:
		p.newExpr(n.New)
		p.write(" {")
		p.bindings(n.Bindings)
		p.write("}")
	case *Conditional:
		p.operand(n.Test, 1, false)
		p.write(" ? ")
		p.operand(n.IfTrue, 1, false)
		p.write(" : ")
		p.operand(n.IfFalse, 1, false)
	case *Lambda:
		if len(n.Params) == 1 {
			p.node(n.Params[0])
		} else {
			p.write("(")
			for i, param := range n.Params {
				if i > 0 {
					p.write(", ")
				}
				p.node(param)
			}
			p.write(")")
		}
		p.write(" => ")
		p.node(n.Body)
	case *Block:
		p.write("{ ")
		for _, v := range n.Variables {
			p.write("var ")
			p.node(v)
			p.write("; ")
		}
		for _, e := range n.Exprs {
			p.node(e)
			p.write("; ")
		}
		p.write("}")
	case *Dynamic:
		p.write("dynamic ", n.Binder.Name)
		if n.Binder.Operation != "" {
			p.write(":", n.Binder.Operation)
		}
		p.write("(")
		p.list(n.Args)
		p.write(")")
	case *Parameter:
		p.write(n.Name)
		if p.ids {
			p.write("#", n.id.Short())
		}
	case *Constant:
		p.write(formatValue(n.Value))
	case *Default:
		p.write("default(", string(n.ResultType), ")")
	case *Statement:
		p.write(string(n.Op))
		if n.Label != "" {
			p.write(" ", n.Label)
		}
		p.write("(")
		p.list(n.Operands)
		p.write(")")
	default:
		p.write(fmt.Sprintf("<%s>", node.Kind()))
	}
}

func (p *printer) unary(n *Unary) {
	switch n.Op {
	case KindNegate, KindUnaryPlus, KindNot, KindOnesComplement,
		KindPreIncrementAssign, KindPreDecrementAssign:
		prefix := map[Kind]string{
			KindNegate: "-", KindUnaryPlus: "+", KindNot: "!",
			KindOnesComplement: "~", KindPreIncrementAssign: "++",
			KindPreDecrementAssign: "--",
		}[n.Op]
		if n.Checked {
			p.write("checked(")
			defer p.write(")")
		}
		p.write(prefix)
		p.operand(n.Operand, 13, false)
	case KindPostIncrementAssign:
		p.operand(n.Operand, 13, false)
		p.write("++")
	case KindPostDecrementAssign:
		p.operand(n.Operand, 13, false)
		p.write("--")
	case KindConvert:
		if n.Checked {
			p.write("checked(")
			defer p.write(")")
		}
		p.write(string(n.ResultType), "(")
		p.node(n.Operand)
		p.write(")")
	case KindTypeAs:
		p.operand(n.Operand, 13, false)
		p.write(" as ", string(n.ResultType))
	default:
		p.write(string(n.Op), "(")
		p.node(n.Operand)
		p.write(")")
	}
}

func (p *printer) newExpr(n *New) {
	if n == nil {
		p.write("new <nil>")
		return
	}
	p.write("new ", string(n.ResultType), "(")
	p.list(n.Args)
	p.write(")")
}

func (p *printer) inits(inits []*ElementInit) {
	for i, init := range inits {
		if i > 0 {
			p.write(", ")
		}
		if len(init.Args) == 1 {
			p.node(init.Args[0])
			continue
		}
		p.write("{")
		p.list(init.Args)
		p.write("}")
	}
}

func (p *printer) bindings(bindings []MemberBinding) {
	for i, b := range bindings {
		if i > 0 {
			p.write(", ")
		}
		p.write(b.BoundMember().Name, " = ")
		switch b := b.(type) {
		case *MemberAssignment:
			p.node(b.Expr)
		case *MemberListBinding:
			p.write("{")
			p.inits(b.Initializers)
			p.write("}")
		case *MemberMemberBinding:
			p.write("{")
			p.bindings(b.Bindings)
			p.write("}")
		}
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
