// Package images - Image processing utilities
package images

import "image"

// Rect is a lightweight axis-aligned box in frame pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// NewRect builds a Rect from corner coordinates as given, without
// reordering them. A box with X1 >= X2 or Y1 >= Y2 is empty.
func NewRect(x1, y1, x2, y2 int) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Rectangle converts r to an image.Rectangle. Unlike image.Rect the corners
// are not swapped, so a degenerate box stays empty.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rectangle{Min: image.Pt(r.X1, r.Y1), Max: image.Pt(r.X2, r.Y2)}
}

// Empty reports whether r contains no pixels.
func (r Rect) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

// Width returns the horizontal extent, or 0 for an empty box.
func (r Rect) Width() int {
	if r.Empty() {
		return 0
	}
	return r.X2 - r.X1
}

// Height returns the vertical extent, or 0 for an empty box.
func (r Rect) Height() int {
	if r.Empty() {
		return 0
	}
	return r.Y2 - r.Y1
}

// Area returns the pixel count of r.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Clip intersects r with bounds. The result is image.Rectangle{} when they
// do not overlap or r is degenerate.
//
// @example
// roi := images.NewRect(600, 400, 700, 500)
// crop := roi.Clip(image.Rect(0, 0, 640, 480)) // (600,400)-(640,480)
func (r Rect) Clip(bounds image.Rectangle) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	return r.Rectangle().Intersect(bounds)
}
