package filter

import (
	"strings"
	"time"

	"asyncq/internal/domain"
)

// Predicate is a filter expression bound to one entity schema.
type Predicate struct {
	entity *domain.EntitySchema
	expr   string
	root   expression
}

var _ domain.Predicate = (*Predicate)(nil)

// Entity implements domain.Predicate.
func (p *Predicate) Entity() *domain.EntitySchema { return p.entity }

// Matches implements domain.Predicate. Entities of a different type never match.
func (p *Predicate) Matches(e domain.Entity) bool {
	if e == nil || e.EntitySchema() != p.entity {
		return false
	}
	return p.root.match(e)
}

// SQL implements domain.Predicate.
func (p *Predicate) SQL() (string, []any) {
	var sb strings.Builder
	var args []any
	p.root.sql(&sb, &args)
	return sb.String(), args
}

// String returns the source expression.
func (p *Predicate) String() string { return p.expr }

type expression interface {
	match(e domain.Entity) bool
	sql(sb *strings.Builder, args *[]any)
}

type andExpr []expression

func (a andExpr) match(e domain.Entity) bool {
	for _, c := range a {
		if !c.match(e) {
			return false
		}
	}
	return true
}

func (a andExpr) sql(sb *strings.Builder, args *[]any) { joinSQL(sb, args, a, " AND ") }

type orExpr []expression

func (o orExpr) match(e domain.Entity) bool {
	for _, c := range o {
		if c.match(e) {
			return true
		}
	}
	return false
}

func (o orExpr) sql(sb *strings.Builder, args *[]any) { joinSQL(sb, args, o, " OR ") }

func joinSQL(sb *strings.Builder, args *[]any, children []expression, sep string) {
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		c.sql(sb, args)
	}
	sb.WriteByte(')')
}

type condition struct {
	field    *domain.FieldSchema
	op       Operator
	values   []any // string, int64 or time.Time
	wildcard bool  // values[0] is a "*" pattern
}

func (c *condition) match(e domain.Entity) bool {
	actual := c.field.Get(e)
	if c.wildcard {
		s, _ := actual.(string)
		ok := globMatch(strings.ToLower(c.values[0].(string)), strings.ToLower(s))
		if c.op == OpNotEqual {
			return !ok
		}
		return ok
	}

	switch c.op {
	case OpEqual:
		return compare(actual, c.values[0]) == 0
	case OpNotEqual:
		return compare(actual, c.values[0]) != 0
	case OpIn:
		return c.in(actual)
	case OpNotIn:
		return !c.in(actual)
	case OpLess:
		return compare(actual, c.values[0]) < 0
	case OpLessEqual:
		return compare(actual, c.values[0]) <= 0
	case OpGreater:
		return compare(actual, c.values[0]) > 0
	case OpGreaterEqual:
		return compare(actual, c.values[0]) >= 0
	}
	return false
}

func (c *condition) in(actual any) bool {
	for _, v := range c.values {
		if compare(actual, v) == 0 {
			return true
		}
	}
	return false
}

var sqlOperators = map[Operator]string{
	OpEqual:        "=",
	OpNotEqual:     "<>",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
}

func (c *condition) sql(sb *strings.Builder, args *[]any) {
	col := c.field.Column
	if c.wildcard {
		if c.op == OpNotEqual {
			sb.WriteString("LOWER(" + col + ") NOT LIKE ? ESCAPE '\\'")
		} else {
			sb.WriteString("LOWER(" + col + ") LIKE ? ESCAPE '\\'")
		}
		*args = append(*args, likePattern(strings.ToLower(c.values[0].(string))))
		return
	}

	if c.op.multiValued() {
		sb.WriteString(col)
		if c.op == OpNotIn {
			sb.WriteString(" NOT IN (")
		} else {
			sb.WriteString(" IN (")
		}
		for i, v := range c.values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			*args = append(*args, sqlValue(v))
		}
		sb.WriteByte(')')
		return
	}

	sb.WriteString(col + " " + sqlOperators[c.op] + " ?")
	*args = append(*args, sqlValue(c.values[0]))
}

// sqlValue converts a bound value into its persisted representation.
func sqlValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return domain.FormatTimestamp(ts)
	}
	return v
}

// compare orders two values of the same bound type. Mismatched types sort
// as unequal.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return -1
		}
		return strings.Compare(av, bv)
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return -1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return -1
		}
		return av.Compare(bv)
	}
	return -1
}

// likePattern turns a "*" glob into a LIKE pattern with "\" as escape.
func likePattern(glob string) string {
	var sb strings.Builder
	for i := 0; i < len(glob); i++ {
		switch ch := glob[i]; ch {
		case '*':
			sb.WriteByte('%')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(ch)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// globMatch reports whether s matches pattern, where "*" matches any run of
// characters.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, mid := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, mid)
		if idx < 0 {
			return false
		}
		s = s[idx+len(mid):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
