package robot

import "fmt"

// Directive is the per-tick motor command: signed wheel force factors.
// Equal factors drive straight; opposite factors turn in place, counter-clockwise
// when Right > Left.
type Directive struct {
	Left  float64
	Right float64
}

var NoMovement = Directive{}

// IsRotational reports whether the wheels work against each other.
func (d Directive) IsRotational() bool {
	return d.Left != 0 && d.Left == -d.Right
}

// Linear is the forward component of the directive.
func (d Directive) Linear() float64 { return (d.Left + d.Right) / 2 }

// Angular is the counter-clockwise turning component of the directive.
func (d Directive) Angular() float64 { return (d.Right - d.Left) / 2 }

// Status is the externally visible motion state of a controller.
type Status uint8

const (
	Idle Status = iota
	Moving
	Stopping
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}
