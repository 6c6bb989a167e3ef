// Package action maps the policy's discrete output onto the simulator's
// continuous control vector.
package action

import "fmt"

// Dims is the number of components in a control vector.
const Dims = 8

// Component offsets within a Vector.
const (
	Throttle = iota
	Steer
	Pitch
	Yaw
	Roll
	Jump
	Boost
	Handbrake
)

// Names lists the component names in vector order.
var Names = [Dims]string{"throttle", "steer", "pitch", "yaw", "roll", "jump", "boost", "handbrake"}

// Vector is one control input for a single tick.
// Analog axes are in [-1, 1]; jump, boost and handbrake are 0 or 1.
type Vector [Dims]float64

func (v Vector) Throttle() float64  { return v[Throttle] }
func (v Vector) Steer() float64     { return v[Steer] }
func (v Vector) Pitch() float64     { return v[Pitch] }
func (v Vector) Yaw() float64       { return v[Yaw] }
func (v Vector) Roll() float64      { return v[Roll] }
func (v Vector) Jump() float64      { return v[Jump] }
func (v Vector) Boost() float64     { return v[Boost] }
func (v Vector) Handbrake() float64 { return v[Handbrake] }

// String formats the vector as (t,s,p,y,r,j,b,h).
func (v Vector) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g,%g,%g,%g,%g)", v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7])
}
