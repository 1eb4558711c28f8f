package main

// FoodIndex is a uniform grid over the food list supporting nearest and
// range queries. Rebuilds are lazy: mutations only set a dirty flag, and the
// room rebuilds at most once per tick.
type FoodIndex struct {
	cols  int
	cell  float64
	cells [][]int32 // indices into the room's food slice
	dirty bool
}

// NewFoodIndex creates an index covering a square world of the given size.
func NewFoodIndex(worldSize float64) *FoodIndex {
	cols := int(worldSize/SpatialCellSize) + 1
	return &FoodIndex{
		cols:  cols,
		cell:  SpatialCellSize,
		cells: make([][]int32, cols*cols),
		dirty: true,
	}
}

// MarkDirty flags the index for rebuild on the next tick.
func (fi *FoodIndex) MarkDirty() {
	fi.dirty = true
}

// Dirty reports whether a rebuild is pending.
func (fi *FoodIndex) Dirty() bool {
	return fi.dirty
}

// Build rebuilds the grid from the current food list and clears the dirty
// flag. Cell slices are truncated, not freed, for allocation-free reuse.
func (fi *FoodIndex) Build(foods []*Food) {
	for i := range fi.cells {
		fi.cells[i] = fi.cells[i][:0]
	}
	for i, f := range foods {
		idx := fi.cellIdx(f.Pos.X, f.Pos.Y)
		fi.cells[idx] = append(fi.cells[idx], int32(i))
	}
	fi.dirty = false
}

func (fi *FoodIndex) cellIdx(x, y float64) int {
	cx := int(x / fi.cell)
	cy := int(y / fi.cell)
	if cx < 0 {
		cx = 0
	} else if cx >= fi.cols {
		cx = fi.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= fi.cols {
		cy = fi.cols - 1
	}
	return cy*fi.cols + cx
}

// QueryNearest returns the index of the closest food within radius of
// (x, y), or -1 if none is in range. Exact distance check, not cell-box.
func (fi *FoodIndex) QueryNearest(foods []*Food, x, y, radius float64) int {
	minCX := int((x - radius) / fi.cell)
	maxCX := int((x + radius) / fi.cell)
	minCY := int((y - radius) / fi.cell)
	maxCY := int((y + radius) / fi.cell)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= fi.cols {
		maxCX = fi.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= fi.cols {
		maxCY = fi.cols - 1
	}

	best := -1
	bestD := radius * radius
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, i := range fi.cells[cy*fi.cols+cx] {
				f := foods[i]
				d := DistanceSq(x, y, f.Pos.X, f.Pos.Y)
				if d <= bestD {
					bestD = d
					best = int(i)
				}
			}
		}
	}
	return best
}

// QueryInRange appends the indices of all food within radius of (x, y) to
// buf and returns the extended slice. Used for view-culled broadcast.
func (fi *FoodIndex) QueryInRange(foods []*Food, x, y, radius float64, buf []int32) []int32 {
	minCX := int((x - radius) / fi.cell)
	maxCX := int((x + radius) / fi.cell)
	minCY := int((y - radius) / fi.cell)
	maxCY := int((y + radius) / fi.cell)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= fi.cols {
		maxCX = fi.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= fi.cols {
		maxCY = fi.cols - 1
	}

	r2 := radius * radius
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, i := range fi.cells[cy*fi.cols+cx] {
				f := foods[i]
				if DistanceSq(x, y, f.Pos.X, f.Pos.Y) <= r2 {
					buf = append(buf, i)
				}
			}
		}
	}
	return buf
}
