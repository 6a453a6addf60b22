// Package geom provides the shared screen-space primitives.
package geom

import (
	"fmt"
	"image"
)

// Point is a pixel position. Depending on context it is either absolute
// (virtual desktop) or relative to a captured region's origin.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is a rectangle in absolute virtual-desktop coordinates.
// Origins may be negative on multi-display layouts. The zero Region
// stands for "whole primary display" and is resolved by the capture
// backend.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Valid reports whether the region has positive extent.
func (r Region) Valid() bool {
	return r.X2 > r.X1 && r.Y2 > r.Y1
}

// IsZero reports whether the region is unset.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Dx returns the region width.
func (r Region) Dx() int { return r.X2 - r.X1 }

// Dy returns the region height.
func (r Region) Dy() int { return r.Y2 - r.Y1 }

// Rect converts to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Contains reports whether the absolute point lies inside the region.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X1 && p.X < r.X2 && p.Y >= r.Y1 && p.Y < r.Y2
}

// ToRelative maps an absolute point into region-local coordinates.
func (r Region) ToRelative(p Point) Point {
	return Point{X: p.X - r.X1, Y: p.Y - r.Y1}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}
