// Package shapes is a small fixture package.
package shapes

import "io"

// Shape is anything with an area.
type Shape interface {
	io.Writer
	// Area returns the area.
	Area() float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	// Width of the rectangle.
	Width, Height float64
	label         string
	*Origin
}

// Origin anchors a shape.
type Origin struct {
	X, Y int
}

// Unit is a measurement unit.
type Unit string

// Metre is the default unit.
const Metre Unit = "m"

const scale = 10

// Registry holds named shapes.
var Registry map[string]Shape

// NewRect builds a rectangle.
//
// Deprecated: use MakeRect instead.
func NewRect(w, h float64) *Rect {
	var tmp int
	_ = tmp
	return &Rect{Width: w, Height: h}
}

// Sum adds areas.
func Sum(shapes ...Shape) (total float64, err error) {
	return 0, nil
}

func helper() {}

type hidden struct{}

// Visible is a method on an unexported type.
func (hidden) Visible() {}
