package shapes

// Area returns w*h.
func (r *Rect) Area() float64 {
	return r.Width * r.Height
}

// Scale grows the rectangle.
func (r *Rect) Scale(by Unit) Rect {
	return *r
}

func (r *Rect) normalize() {}
