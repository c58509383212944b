// Package grid maps linear indices onto rows and columns of fixed-size cells.
package grid

// GetGridCoords returns the column and row of index in a grid cols wide,
// filled row by row.
func GetGridCoords(index, cols int) (x, y int) {
	if cols <= 0 {
		return 0, index
	}
	return index % cols, index / cols
}

// Layout places equally sized cells with a gap between them, starting at
// an origin.
type Layout struct {
	OriginX, OriginY int
	CellW, CellH     int
	Gap              int
	Cols             int
}

// CellOrigin returns the top-left pixel of the cell at index.
func (l Layout) CellOrigin(index int) (px, py int) {
	x, y := GetGridCoords(index, l.Cols)
	px = l.OriginX + x*(l.CellW+l.Gap)
	py = l.OriginY + y*(l.CellH+l.Gap)
	return px, py
}

// Capacity reports how many cells fit in rows rows.
func (l Layout) Capacity(rows int) int {
	if l.Cols <= 0 || rows <= 0 {
		return 0
	}
	return l.Cols * rows
}
