package document

import "fmt"

// Position is a zero-based location in a text document. Character counts
// runes within the line.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Compare orders positions by line, then character. It returns -1, 0 or 1.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	}
	return 0
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	return p.Compare(o) < 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is the half-open span [Start, End).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range from line/character pairs.
func NewRange(startLine, startChar, endLine, endChar int) Range {
	return Range{
		Start: Position{Line: startLine, Character: startChar},
		End:   Position{Line: endLine, Character: endChar},
	}
}

// IsEmpty reports whether the range covers no text.
func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) == 0
}

// Overlaps reports whether r and o share any text. Touching ranges do not
// overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}
