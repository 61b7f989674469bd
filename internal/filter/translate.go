package filter

import (
	"strconv"
	"strings"
	"time"

	"asyncq/internal/domain"
)

// timestampLayouts are the literal forms accepted for timestamp fields, tried
// in order. The first is the minute-precision form the cleanup sweeps emit.
var timestampLayouts = []string{
	"2006-01-02T15:04Z",
	time.RFC3339Nano,
	domain.TimestampLayout,
	"2006-01-02",
}

// Translator implements domain.PredicateTranslator for RSQL expressions.
type Translator struct{}

var _ domain.PredicateTranslator = (*Translator)(nil)

// NewTranslator creates a new Translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate parses expr and binds it to entity. Any failure is a
// *domain.TranslationError.
func (t *Translator) Translate(expr string, entity *domain.EntitySchema) (domain.Predicate, error) {
	p, err := Compile(expr, entity)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Compile parses expr and binds every selector and argument against entity.
func Compile(expr string, entity *domain.EntitySchema) (*Predicate, error) {
	if entity == nil {
		return nil, domain.ErrTranslation(expr, -1, "no entity type given")
	}
	node, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	b := &binder{input: expr, entity: entity}
	root, err := b.bind(node)
	if err != nil {
		return nil, err
	}
	return &Predicate{entity: entity, expr: expr, root: root}, nil
}

type binder struct {
	input  string
	entity *domain.EntitySchema
}

func (b *binder) bind(n Node) (expression, error) {
	switch n := n.(type) {
	case *AndNode:
		out := make(andExpr, 0, len(n.Children))
		for _, c := range n.Children {
			e, err := b.bind(c)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case *OrNode:
		out := make(orExpr, 0, len(n.Children))
		for _, c := range n.Children {
			e, err := b.bind(c)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case *Comparison:
		return b.bindComparison(n)
	default:
		return nil, domain.ErrTranslation(b.input, -1, "unsupported node %T", n)
	}
}

func (b *binder) bindComparison(c *Comparison) (expression, error) {
	field, ok := b.entity.Field(c.Selector)
	if !ok {
		return nil, domain.ErrTranslation(b.input, c.Pos, "unknown field %q for %s (known: %s)",
			c.Selector, b.entity.Name, strings.Join(b.entity.FieldNames(), ", "))
	}
	if c.Operator.multiValued() {
		if len(c.Args) == 0 {
			return nil, domain.ErrTranslation(b.input, c.Pos, "%s requires at least one argument", c.Operator)
		}
	} else if len(c.Args) != 1 {
		return nil, domain.ErrTranslation(b.input, c.Pos, "%s takes exactly one argument, got %d", c.Operator, len(c.Args))
	}
	if c.Operator.ordering() && field.Type == domain.FieldEnum {
		return nil, domain.ErrTranslation(b.input, c.Pos, "%s is not supported on enum field %q", c.Operator, field.Name)
	}

	cond := &condition{field: field, op: c.Operator}
	if field.Type == domain.FieldString && (c.Operator == OpEqual || c.Operator == OpNotEqual) && strings.Contains(c.Args[0], "*") {
		cond.wildcard = true
		cond.values = []any{c.Args[0]}
		return cond, nil
	}

	for i, raw := range c.Args {
		v, err := b.convert(field, raw, c.ArgPos[i])
		if err != nil {
			return nil, err
		}
		cond.values = append(cond.values, v)
	}
	return cond, nil
}

// convert parses raw into the Go type field.Get returns.
func (b *binder) convert(field *domain.FieldSchema, raw string, pos int) (any, error) {
	switch field.Type {
	case domain.FieldString:
		return raw, nil
	case domain.FieldEnum:
		for _, v := range field.Values {
			if v == raw {
				return raw, nil
			}
		}
		return nil, domain.ErrTranslation(b.input, pos, "invalid value %q for %s (allowed: %s)",
			raw, field.Name, strings.Join(field.Values, ", "))
	case domain.FieldInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.ErrTranslation(b.input, pos, "invalid integer %q for %s", raw, field.Name)
		}
		return n, nil
	case domain.FieldTimestamp:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, domain.ErrTranslation(b.input, pos, "invalid timestamp %q for %s", raw, field.Name)
	default:
		return nil, domain.ErrTranslation(b.input, pos, "field %q has unsupported type %s", field.Name, field.Type)
	}
}
