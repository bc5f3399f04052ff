package mode

import "strings"

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses vector and keyword rankings.
	Hybrid Mode = "hybrid"
	// Vector ranks by embedding similarity only.
	Vector Mode = "vector"
	// Keyword ranks by lexical score only.
	Keyword Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Vector || m == Keyword
}

// Parse maps user input to a Mode. "semantic" is accepted for Vector;
// anything unknown falls back to Hybrid.
func Parse(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Vector, Keyword, Hybrid:
		return m
	case "semantic":
		return Vector
	default:
		return Hybrid
	}
}

// UsesVector reports whether the mode runs the vector stage.
func (m Mode) UsesVector() bool { return m != Keyword }

// UsesKeyword reports whether the mode runs the keyword stage.
func (m Mode) UsesKeyword() bool { return m != Vector }
