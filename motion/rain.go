package motion

import (
	"gocv.io/x/gocv"
)

// ClassifyRain inspects the contour population of a full-frame foreground
// mask. Rain, snow and sensor noise show up as many small disconnected blobs,
// so the frame is flagged when the number of external contours with area
// strictly below minContourArea exceeds maxSmall.
//
// Arguments:
//   - mask: Binary single-channel foreground mask.
//   - minContourArea: Area below which a contour counts as small.
//   - maxSmall: Largest small-contour count still considered normal.
//
// Returns:
//   - Whether rain suppression applies to this frame.
//   - The number of small contours found.
func ClassifyRain(mask gocv.Mat, minContourArea float64, maxSmall int) (bool, int) {
	if mask.Empty() {
		return false, 0
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	small := 0
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < minContourArea {
			small++
		}
	}
	return small > maxSmall, small
}
