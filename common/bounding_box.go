// Package common - shared bounding box types for ground truth and result annotations.
package common

import (
	"fmt"
	"image"
)

// BoundingBox represents a single annotated box in pixel coordinates.
//
// No ordering is enforced on the corners: XMin may be greater than XMax (and YMin
// greater than YMax). Consumers normalise the axes through Intervals.
type BoundingBox struct {
	XMin, YMin, XMax, YMax int
}

// NewBoundingBox builds a box from the (xmin, ymin, xmax, ymax) tuple.
func NewBoundingBox(xmin, ymin, xmax, ymax int) BoundingBox {
	return BoundingBox{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
}

// Interval is a pair of coordinates along one axis. The pair is not necessarily ordered.
type Interval [2]float64

// Sorted returns the interval with its low bound first.
func (i Interval) Sorted() Interval {
	if i[0] > i[1] {
		return Interval{i[1], i[0]}
	}
	return i
}

// Length returns the absolute distance between the two bounds.
func (i Interval) Length() float64 {
	if i[0] > i[1] {
		return i[0] - i[1]
	}
	return i[1] - i[0]
}

// Intervals decomposes the box into its sorted x and y intervals.
//
// Returns:
//   - x: (low, high) along the horizontal axis.
//   - y: (low, high) along the vertical axis.
//
// @example
// box := BoundingBox{XMin: 10, YMin: 40, XMax: 0, YMax: 20}
// x, y := box.Intervals() // x = [0 10], y = [20 40]
func (b BoundingBox) Intervals() (x, y Interval) {
	x = Interval{float64(b.XMin), float64(b.XMax)}.Sorted()
	y = Interval{float64(b.YMin), float64(b.YMax)}.Sorted()
	return x, y
}

// Area returns the box area in pixels, regardless of corner ordering.
func (b BoundingBox) Area() float64 {
	x, y := b.Intervals()
	return x.Length() * y.Length()
}

// Degenerate reports whether the box covers no area.
func (b BoundingBox) Degenerate() bool {
	return b.XMin == b.XMax || b.YMin == b.YMax
}

// ToRect converts the bounding box to a canonical image.Rectangle for drawing.
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax).Canon()
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d, %d), (%d, %d)", b.XMin, b.YMin, b.XMax, b.YMax)
}
