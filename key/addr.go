package key

import "fmt"

// Addr is a (row, column) position in the switch matrix.
type Addr struct {
	Row uint8
	Col uint8
}

// InvalidAddr marks events that have no physical key behind them.
var InvalidAddr = Addr{Row: 0xff, Col: 0xff}

// At returns the address of the given row and column.
func At(row, col uint8) Addr {
	return Addr{Row: row, Col: col}
}

// IsValid reports whether a is a real matrix position.
func (a Addr) IsValid() bool {
	return a != InvalidAddr
}

// Compare orders addresses row-major. It returns -1, 0 or +1.
func (a Addr) Compare(b Addr) int {
	switch {
	case a.Row < b.Row:
		return -1
	case a.Row > b.Row:
		return 1
	case a.Col < b.Col:
		return -1
	case a.Col > b.Col:
		return 1
	}
	return 0
}

func (a Addr) String() string {
	if !a.IsValid() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%d)", a.Row, a.Col)
}

// Geometry describes the dimensions of a switch matrix.
type Geometry struct {
	Rows uint8
	Cols uint8
}

// Size returns the number of positions in the matrix.
func (g Geometry) Size() int {
	return int(g.Rows) * int(g.Cols)
}

// Contains reports whether a lies inside the matrix.
func (g Geometry) Contains(a Addr) bool {
	return a.Row < g.Rows && a.Col < g.Cols
}

// Index returns the row-major offset of a. The result is only meaningful
// when Contains(a) is true.
func (g Geometry) Index(a Addr) int {
	return int(a.Row)*int(g.Cols) + int(a.Col)
}

// AddrAt is the inverse of Index.
func (g Geometry) AddrAt(i int) Addr {
	if g.Cols == 0 || i < 0 || i >= g.Size() {
		return InvalidAddr
	}
	return Addr{Row: uint8(i / int(g.Cols)), Col: uint8(i % int(g.Cols))}
}
