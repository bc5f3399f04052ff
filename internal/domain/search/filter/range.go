package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Bound is one end of a Range.
type Bound struct {
	Value     float64
	Inclusive bool
}

// Range is a numeric interval. A nil end is unbounded.
type Range struct {
	lower *Bound
	upper *Bound
}

// NewRangeFilter builds a Range from optional gt, gte, lt and lte limits.
// At least one is required, and each side takes at most one of them.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	lower, err := side(gt, gte, "gt", "gte")
	if err != nil {
		return Range{}, err
	}
	upper, err := side(lt, lte, "lt", "lte")
	if err != nil {
		return Range{}, err
	}
	if lower == nil && upper == nil {
		return Range{}, errors.New("at least one range boundary is required")
	}
	return Range{lower: lower, upper: upper}, nil
}

func side(exclusive, inclusive *float64, exName, inName string) (*Bound, error) {
	switch {
	case exclusive != nil && inclusive != nil:
		return nil, fmt.Errorf("cannot specify both %s and %s", exName, inName)
	case exclusive != nil:
		return &Bound{Value: *exclusive}, nil
	case inclusive != nil:
		return &Bound{Value: *inclusive, Inclusive: true}, nil
	}
	return nil, nil
}

// Below is the range v < limit.
func Below(limit float64) Range {
	return Range{upper: &Bound{Value: limit}}
}

// Lower returns the lower end, nil when unbounded.
func (r Range) Lower() *Bound { return r.lower }

// Upper returns the upper end, nil when unbounded.
func (r Range) Upper() *Bound { return r.upper }

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	if l := r.lower; l != nil && (v < l.Value || (v == l.Value && !l.Inclusive)) {
		return false
	}
	if u := r.upper; u != nil && (v > u.Value || (v == u.Value && !u.Inclusive)) {
		return false
	}
	return true
}

func (r Range) String() string {
	var parts []string
	if l := r.lower; l != nil {
		op := ">"
		if l.Inclusive {
			op = ">="
		}
		parts = append(parts, fmt.Sprintf("%s %g", op, l.Value))
	}
	if u := r.upper; u != nil {
		op := "<"
		if u.Inclusive {
			op = "<="
		}
		parts = append(parts, fmt.Sprintf("%s %g", op, u.Value))
	}
	return strings.Join(parts, " ")
}
