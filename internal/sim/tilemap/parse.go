package tilemap

import (
	"fmt"

	"swarmsim/internal/sim/geom"
)

// Parse builds a collision map from ASCII rows. Row 0 is the top of the map
// (largest y). All rows must have the same width.
func Parse(rows []string, scale float64, offset geom.Vec2) (*SimulationMap[Tile], error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tilemap: no rows")
	}
	width := len([]rune(rows[0]))
	height := len(rows)
	types := make([]TileType, width*height)
	for r, row := range rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, fmt.Errorf("tilemap: row %d has width %d, want %d", r, len(runes), width)
		}
		y := height - 1 - r
		for x, ch := range runes {
			t, ok := TypeForRune(ch)
			if !ok {
				return nil, fmt.Errorf("tilemap: row %d col %d: unknown tile %q", r, x, ch)
			}
			types[y*width+x] = t
		}
	}
	return New(width, height, scale, offset, func(tri int) Tile {
		return Tile{Type: types[tri/TrianglesPerTile]}
	})
}

// MustParse is Parse for fixed test and example maps.
func MustParse(rows ...string) *SimulationMap[Tile] {
	m, err := Parse(rows, 1, geom.Vec2{})
	if err != nil {
		panic(err)
	}
	return m
}

// TileIsOpen reports whether none of the tile's triangles is a wall.
func TileIsOpen(m *SimulationMap[Tile], c geom.Coord) bool {
	tris, err := m.Tile(c)
	if err != nil {
		return false
	}
	for _, t := range tris {
		if t.IsWall() {
			return false
		}
	}
	return true
}

var typeRunes = map[TileType]rune{
	Room:     '.',
	Hall:     'h',
	Wall:     '#',
	Concrete: 'c',
	Wood:     'w',
	Brick:    'b',
	Metal:    'm',
}

// Format renders m back into ASCII rows, top row first. A tile takes the
// type of its first triangle.
func Format(m *SimulationMap[Tile]) []string {
	rows := make([]string, 0, m.height)
	for y := m.height - 1; y >= 0; y-- {
		row := make([]rune, 0, m.width)
		for x := 0; x < m.width; x++ {
			r, ok := typeRunes[m.cells[(y*m.width+x)*TrianglesPerTile].Type]
			if !ok {
				r = '?'
			}
			row = append(row, r)
		}
		rows = append(rows, string(row))
	}
	return rows
}
