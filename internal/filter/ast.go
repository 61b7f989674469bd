package filter

import "strings"

// Operator is a comparison operator in canonical FIQL form.
type Operator string

// Supported comparison operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpIn           Operator = "=in="
	OpNotIn        Operator = "=out="
	OpLess         Operator = "=lt="
	OpLessEqual    Operator = "=le="
	OpGreater      Operator = "=gt="
	OpGreaterEqual Operator = "=ge="
)

var operatorAliases = map[string]Operator{
	"==":    OpEqual,
	"!=":    OpNotEqual,
	"=in=":  OpIn,
	"=out=": OpNotIn,
	"=lt=":  OpLess,
	"<":     OpLess,
	"=le=":  OpLessEqual,
	"<=":    OpLessEqual,
	"=gt=":  OpGreater,
	">":     OpGreater,
	"=ge=":  OpGreaterEqual,
	">=":    OpGreaterEqual,
}

func lookupOperator(lit string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(lit)]
	return op, ok
}

func (op Operator) multiValued() bool { return op == OpIn || op == OpNotIn }

func (op Operator) ordering() bool {
	return op == OpLess || op == OpLessEqual || op == OpGreater || op == OpGreaterEqual
}

// Node is a parsed filter expression.
type Node interface {
	node()
}

// AndNode matches when every child matches.
type AndNode struct {
	Children []Node
}

// OrNode matches when any child matches.
type OrNode struct {
	Children []Node
}

// Comparison is a single selector/operator/arguments term.
type Comparison struct {
	Selector string
	Operator Operator
	Args     []string
	Pos      int // offset of the selector in the input
	ArgPos   []int
}

func (*AndNode) node()    {}
func (*OrNode) node()     {}
func (*Comparison) node() {}
