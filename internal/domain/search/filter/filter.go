package filter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
// A chunk matches when every must condition holds, at least one should condition
// holds (if any are given) and no must_not condition holds.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// All builds an expression requiring every condition.
func All(conds ...Condition) Expression { return Expression{must: conds} }

// Any builds an expression requiring at least one condition.
func Any(conds ...Condition) Expression { return Expression{should: conds} }

// None builds an expression rejecting every condition.
func None(conds ...Condition) Expression { return Expression{mustNot: conds} }

// And merges two expressions: both must hold. Should groups are nested to keep
// their own at-least-one semantics.
func (e Expression) And(other Expression) Expression {
	out := Expression{}
	for _, x := range []Expression{e, other} {
		out.must = append(out.must, x.must...)
		out.mustNot = append(out.mustNot, x.mustNot...)
		if len(x.should) > 0 {
			out.must = append(out.must, Group(Any(x.should...)))
		}
	}
	return out
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against a chunk. An empty expression matches everything.
func (e Expression) Matches(c chunk.Chunk) bool {
	for _, cond := range e.must {
		if !cond.Matches(c) {
			return false
		}
	}
	for _, cond := range e.mustNot {
		if cond.Matches(c) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, cond := range e.should {
		if cond.Matches(c) {
			return true
		}
	}
	return false
}

// String renders the expression for logs.
func (e Expression) String() string {
	var parts []string
	if len(e.must) > 0 {
		parts = append(parts, "must"+joinConds(e.must))
	}
	if len(e.should) > 0 {
		parts = append(parts, "should"+joinConds(e.should))
	}
	if len(e.mustNot) > 0 {
		parts = append(parts, "must_not"+joinConds(e.mustNot))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func joinConds(conds []Condition) string {
	s := make([]string, len(conds))
	for i, c := range conds {
		s[i] = c.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

type conditionKind int

const (
	kindMatch conditionKind = iota + 1
	kindContains
	kindRange
	kindGroup
)

// Condition is a single filter clause: a metadata match, a content
// substring test, a numeric range or a nested group.
type Condition struct {
	kind      conditionKind
	key       string
	values    []string
	rangeExpr *Range
	group     *Expression
}

// NewMatch creates a condition matching metadata key against any of values.
// List-valued metadata matches when any element equals any value.
func NewMatch(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{kind: kindMatch, key: key, values: values}, nil
}

// NewContains creates a condition matching chunk content containing any of terms.
func NewContains(terms ...string) (Condition, error) {
	if len(terms) == 0 {
		return Condition{}, fmt.Errorf("at least one term is required")
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	return Condition{kind: kindContains, values: lowered}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: kindRange, key: key, rangeExpr: &r}, nil
}

// Match is NewMatch for statically known arguments.
func Match(key string, values ...string) Condition {
	return must(NewMatch(key, values...))
}

// Contains is NewContains for statically known arguments.
func Contains(terms ...string) Condition {
	return must(NewContains(terms...))
}

// Less is a static "key < bound" condition.
func Less(key string, bound float64) Condition {
	return must(NewRange(key, Below(bound)))
}

// Group nests an expression as a single condition.
func Group(e Expression) Condition {
	return Condition{kind: kindGroup, group: &e}
}

func must(c Condition, err error) Condition {
	if err != nil {
		panic(err)
	}
	return c
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the match values or content terms.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Group returns the nested expression.
func (c Condition) Group() *Expression { return c.group }

// IsMatch reports whether this is a metadata match condition.
func (c Condition) IsMatch() bool { return c.kind == kindMatch }

// IsContains reports whether this is a content condition.
func (c Condition) IsContains() bool { return c.kind == kindContains }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.kind == kindRange }

// IsGroup reports whether this is a nested group.
func (c Condition) IsGroup() bool { return c.kind == kindGroup }

// Matches evaluates the condition against a chunk.
func (c Condition) Matches(ch chunk.Chunk) bool {
	switch c.kind {
	case kindMatch:
		for _, have := range ch.Metadata().List(c.key) {
			for _, want := range c.values {
				if strings.EqualFold(have, want) {
					return true
				}
			}
		}
		return false
	case kindContains:
		content := strings.ToLower(ch.Content())
		for _, term := range c.values {
			if containsTerm(content, term) {
				return true
			}
		}
		return false
	case kindRange:
		v, ok := ch.Metadata().Number(c.key)
		return ok && c.rangeExpr.Contains(v)
	case kindGroup:
		return c.group.Matches(ch)
	default:
		return false
	}
}

func (c Condition) String() string {
	switch c.kind {
	case kindMatch:
		return c.key + " in " + strings.Join(c.values, "|")
	case kindContains:
		return "content ~ " + strings.Join(c.values, "|")
	case kindRange:
		return c.key + " " + c.rangeExpr.String()
	case kindGroup:
		return c.group.String()
	default:
		return "?"
	}
}

// containsTerm is a substring test; pure-ASCII terms must also sit on word
// boundaries so "cat" does not match "medication".
func containsTerm(content, term string) bool {
	if !isASCIIWord(term) {
		return strings.Contains(content, term)
	}
	for from := 0; from <= len(content)-len(term); {
		i := strings.Index(content[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if !asciiLetterBefore(content, start) && !asciiLetterAt(content, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isASCIILetter(s[i]) {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func asciiLetterBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r < utf8.RuneSelf && isASCIILetter(byte(r))
}

func asciiLetterAt(s string, i int) bool {
	return i < len(s) && isASCIILetter(s[i])
}
