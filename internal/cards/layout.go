package cards

import "strings"

// Cell occupies Cols x Rows grid units starting at (X, Y).
type Cell struct {
	X, Y       int
	Cols, Rows int
}

// Layout is a small grid schematic of a page arrangement.
type Layout struct {
	Name  string
	Cols  int
	Rows  int
	Cells []Cell
}

func unitCells(cols, rows int) []Cell {
	out := make([]Cell, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out = append(out, Cell{X: x, Y: y, Cols: 1, Rows: 1})
		}
	}
	return out
}

// LayoutFor matches keywords in a layout value. The first matching rule wins.
func LayoutFor(value string) Layout {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "grid") || strings.Contains(v, "card"):
		return Layout{Name: "grid", Cols: 3, Rows: 2, Cells: unitCells(3, 2)}
	case strings.Contains(v, "long") || strings.Contains(v, "scroll"):
		return Layout{Name: "long-scroll", Cols: 1, Rows: 4, Cells: unitCells(1, 4)}
	case strings.Contains(v, "gallery"):
		return Layout{Name: "gallery", Cols: 4, Rows: 2, Cells: unitCells(4, 2)}
	case strings.Contains(v, "list"):
		return Layout{Name: "list", Cols: 1, Rows: 3, Cells: unitCells(1, 3)}
	case strings.Contains(v, "hero"):
		return Layout{Name: "hero", Cols: 3, Rows: 3, Cells: []Cell{
			{X: 0, Y: 0, Cols: 3, Rows: 2},
			{X: 0, Y: 2, Cols: 1, Rows: 1},
			{X: 1, Y: 2, Cols: 2, Rows: 1},
		}}
	case strings.Contains(v, "sidebar"):
		return Layout{Name: "sidebar", Cols: 4, Rows: 1, Cells: []Cell{
			{X: 0, Y: 0, Cols: 1, Rows: 1},
			{X: 1, Y: 0, Cols: 3, Rows: 1},
		}}
	case strings.Contains(v, "split"):
		return Layout{Name: "split", Cols: 2, Rows: 1, Cells: unitCells(2, 1)}
	default:
		return Layout{Name: "default", Cols: 2, Rows: 2, Cells: []Cell{
			{X: 0, Y: 0, Cols: 1, Rows: 1},
			{X: 1, Y: 0, Cols: 1, Rows: 1},
			{X: 0, Y: 1, Cols: 2, Rows: 1},
		}}
	}
}

// Lines draws the schematic with block characters, cellW runes per grid column.
func (l Layout) Lines(cellW int) []string {
	if cellW < 2 {
		cellW = 2
	}
	w := l.Cols * cellW
	grid := make([][]rune, l.Rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", w))
	}
	for _, c := range l.Cells {
		x0 := c.X * cellW
		x1 := (c.X+c.Cols)*cellW - 1 // one rune gap to the next cell
		for y := c.Y; y < c.Y+c.Rows && y < l.Rows; y++ {
			for x := x0; x < x1 && x < w; x++ {
				grid[y][x] = '█'
			}
		}
	}
	out := make([]string, l.Rows)
	for y, row := range grid {
		out[y] = strings.TrimRight(string(row), " ")
	}
	return out
}
