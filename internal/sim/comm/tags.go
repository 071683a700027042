package comm

import (
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

// Tag is a marker left in the environment. Tags are never removed.
type Tag struct {
	OwnerID  int       `json:"owner_id"`
	Seq      int       `json:"seq"`
	Content  string    `json:"content"`
	Position geom.Vec2 `json:"position"` // world space
}

// TagMap buckets tags by the tile they were deposited on.
type TagMap struct {
	geo   tilemap.Geometry
	tiles [][]Tag
}

func NewTagMap(geo tilemap.Geometry) *TagMap {
	return &TagMap{geo: geo, tiles: make([][]Tag, geo.Width()*geo.Height())}
}

func (t *TagMap) tileOf(world geom.Vec2) (geom.Coord, error) {
	local := t.geo.ToLocal(world)
	if !t.geo.InBounds(local) {
		return geom.Coord{}, fmt.Errorf("tag position %v: %w", world, tilemap.ErrOutOfBounds)
	}
	return local.Trunc(), nil
}

// Add stores a tag at its world position.
func (t *TagMap) Add(tag Tag) error {
	c, err := t.tileOf(tag.Position)
	if err != nil {
		return err
	}
	i := c.Y*t.geo.Width() + c.X
	t.tiles[i] = append(t.tiles[i], tag)
	return nil
}

// Near returns the tags within radius world units of center, scanning only
// the tiles of the bounding box.
func (t *TagMap) Near(center geom.Vec2, radius float64) ([]Tag, error) {
	c, err := t.tileOf(center)
	if err != nil {
		return nil, err
	}
	r := int(math.Ceil(radius / t.geo.Scale()))
	minX, maxX := max(c.X-r, 0), min(c.X+r, t.geo.Width()-1)
	minY, maxY := max(c.Y-r, 0), min(c.Y+r, t.geo.Height()-1)

	var out []Tag
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for _, tag := range t.tiles[y*t.geo.Width()+x] {
				if center.Dist(tag.Position) <= radius {
					out = append(out, tag)
				}
			}
		}
	}
	return out, nil
}

// All returns every tag, tile by tile.
func (t *TagMap) All() []Tag {
	var out []Tag
	for _, tags := range t.tiles {
		out = append(out, tags...)
	}
	return out
}
