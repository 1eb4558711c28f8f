package main

// SpatialCellSize is tuned to roughly the query radius of a thick snake so a
// typical query touches O(1) cells regardless of entity count.
const SpatialCellSize = 160.0

// SegRef identifies one body segment of one player in the grid.
type SegRef struct {
	Idx int32 // player slot in the room arena
	Seg int32 // segment index, 0 = head
}

// SpatialGrid is a uniform grid for broad-phase proximity queries. It is
// cleared and refilled wholesale every tick, so there is no deletion path.
type SpatialGrid struct {
	cols  int
	rows  int
	cell  float64
	cells [][]SegRef
}

// NewSpatialGrid creates a grid covering a square world of the given size.
func NewSpatialGrid(worldSize float64) *SpatialGrid {
	cols := int(worldSize/SpatialCellSize) + 1
	return &SpatialGrid{
		cols:  cols,
		rows:  cols,
		cell:  SpatialCellSize,
		cells: make([][]SegRef, cols*cols),
	}
}

// Clear resets all cells, keeping allocated capacity for reuse.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellIdx(x, y float64) int {
	cx := int(x / g.cell)
	cy := int(y / g.cell)
	if cx < 0 {
		cx = 0
	} else if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= g.rows {
		cy = g.rows - 1
	}
	return cy*g.cols + cx
}

// Insert adds a segment reference at the given position.
func (g *SpatialGrid) Insert(x, y float64, ref SegRef) {
	idx := g.cellIdx(x, y)
	g.cells[idx] = append(g.cells[idx], ref)
}

// Query returns all refs in cells overlapping the query's bounding square.
// This is a superset of the true circular radius; callers refine with an
// exact distance check.
func (g *SpatialGrid) Query(x, y, radius float64) []SegRef {
	return g.QueryBuf(x, y, radius, nil)
}

// QueryBuf appends results to buf and returns the extended slice, avoiding
// per-call allocation in the tick loop.
func (g *SpatialGrid) QueryBuf(x, y, radius float64, buf []SegRef) []SegRef {
	minCX := int((x - radius) / g.cell)
	maxCX := int((x + radius) / g.cell)
	minCY := int((y - radius) / g.cell)
	maxCY := int((y + radius) / g.cell)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= g.cols {
		maxCX = g.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= g.rows {
		maxCY = g.rows - 1
	}
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}
