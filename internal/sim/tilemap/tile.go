package tilemap

import (
	"fmt"
	"strings"
)

// TileType is the material of a tile (or of a single triangle of a tile).
type TileType uint8

const (
	Room TileType = iota
	Hall
	Wall
	Concrete
	Wood
	Brick
	Metal
)

var tileTypeNames = map[TileType]string{
	Room:     "room",
	Hall:     "hall",
	Wall:     "wall",
	Concrete: "concrete",
	Wood:     "wood",
	Brick:    "brick",
	Metal:    "metal",
}

func (t TileType) String() string {
	if s, ok := tileTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tile(%d)", uint8(t))
}

// ParseTileType is the inverse of String (case-insensitive).
func ParseTileType(s string) (TileType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range tileTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tile type %q", s)
}

// IsWall reports whether the material blocks movement and line of sight.
func IsWall(t TileType) bool { return t >= Wall }

// Tile is the payload stored per triangle of the collision map.
type Tile struct {
	Type TileType
}

func (t Tile) IsWall() bool { return IsWall(t.Type) }

var runeTypes = map[rune]TileType{
	'.': Room,
	' ': Room,
	'h': Hall,
	'#': Wall,
	'c': Concrete,
	'w': Wood,
	'b': Brick,
	'm': Metal,
}

// TypeForRune maps the ASCII map alphabet onto tile types.
func TypeForRune(r rune) (TileType, bool) {
	t, ok := runeTypes[r]
	return t, ok
}
