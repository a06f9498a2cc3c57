// Package evaluation - IoU scoring and accuracy aggregation for bounding box annotations.
package evaluation

import (
	"math"

	"github.com/nvr-ai/bbox-eval/common"
)

// ComputeArea returns the area spanned by two coordinate intervals.
//
// Neither interval needs to be ordered: the result is |x[0]-x[1]| * |y[0]-y[1]|.
func ComputeArea(x, y common.Interval) float64 {
	return x.Length() * y.Length()
}

// ComputeIoU calculates the Intersection over Union between a ground truth box and a
// candidate box.
//
// IoU is the ratio between the area both boxes share and the area they cover
// together:
//
//	IoU = Area of Intersection / Area of Union
//
//	- 1.0 means the boxes are identical.
//	- 0.0 means the boxes do not overlap at all.
//
// **How the calculation works**
//
//  1. Each box is split into an x-interval and a y-interval, and every interval is
//     sorted, so boxes with reversed corners (xmin > xmax) score the same as their
//     well-formed counterparts.
//
//  2. If the ground truth lies entirely on one side of the candidate along either
//     axis (touching edges included) the boxes are disjoint and the result is exactly 0.
//
//  3. The intersection is (max of the lows, min of the highs) on each axis. The union
//     follows the inclusion-exclusion principle:
//
//     Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
//  4. When the union is empty (two zero-area boxes crossing each other) there is no
//     meaningful overlap and the result is 0.
//
// Arguments:
//   - gt: The ground truth box.
//   - candidate: The predicted box.
//
// Returns:
//   - float64: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	a := common.NewBoundingBox(0, 0, 4, 4)
//	b := common.NewBoundingBox(2, 2, 6, 6)
//	iou := evaluation.ComputeIoU(a, b) // intersection 4, union 16+16-4=28, iou ≈ 0.142857
//
// ```
func ComputeIoU(gt, candidate common.BoundingBox) float64 {
	iou, _ := computeIoU(gt, candidate)
	return iou
}

// computeIoU also reports whether the pair intersected with an empty union.
func computeIoU(gt, candidate common.BoundingBox) (float64, bool) {
	xGT, yGT := gt.Intervals()
	xC, yC := candidate.Intervals()

	if xGT[0] >= xC[1] || yGT[0] >= yC[1] || xGT[1] <= xC[0] || yGT[1] <= yC[0] {
		return 0, false
	}

	x := common.Interval{math.Max(xGT[0], xC[0]), math.Min(xGT[1], xC[1])}
	y := common.Interval{math.Max(yGT[0], yC[0]), math.Min(yGT[1], yC[1])}
	intersection := ComputeArea(x, y)

	union := gt.Area() + candidate.Area() - intersection
	if union <= 0 {
		return 0, true
	}

	return intersection / union, false
}
