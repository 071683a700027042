package geom

// Cardinal is one of the eight compass directions, counter-clockwise from East.
type Cardinal int

const (
	East Cardinal = iota
	NorthEast
	North
	NorthWest
	West
	SouthWest
	South
	SouthEast
)

// RelativeDirection is a direction expressed relative to a heading.
type RelativeDirection int

const (
	Front RelativeDirection = iota
	FrontLeft
	Left
	RearLeft
	Rear
	RearRight
	Right
	FrontRight
)

var cardinalVectors = [8]Coord{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

var cardinalNames = [8]string{"E", "NE", "N", "NW", "W", "SW", "S", "SE"}

// CardinalFromDegrees snaps a global angle to the nearest of the eight directions.
func CardinalFromDegrees(deg float64) Cardinal {
	return Cardinal(Mod(int((NormalizeDeg(deg)+22.5)/45), 8))
}

func (c Cardinal) Vector() Coord    { return cardinalVectors[Mod(int(c), 8)] }
func (c Cardinal) Degrees() float64 { return float64(Mod(int(c), 8)) * 45 }
func (c Cardinal) String() string   { return cardinalNames[Mod(int(c), 8)] }

// Relative returns the direction obtained by turning rd relative to c.
func (c Cardinal) Relative(rd RelativeDirection) Cardinal {
	return Cardinal(Mod(int(c)+int(rd), 8))
}
