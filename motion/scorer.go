package motion

import (
	"image"

	"github.com/nvr-ai/roi-motion/images"
	"gocv.io/x/gocv"
)

// ScoreRegion measures motion evidence inside one ROI: the summed area of
// the external contours found in the mask crop whose individual area is at
// least minContourArea. A rectangle that is degenerate or lies outside the
// mask scores zero.
//
// Arguments:
//   - mask: Binary single-channel foreground mask for the whole frame.
//   - rect: The ROI in frame coordinates; it is clipped to the mask.
//   - minContourArea: Smallest contour that contributes to the total.
//
// Returns:
//   - The total contour area in square pixels.
func ScoreRegion(mask gocv.Mat, rect images.Rect, minContourArea float64) float64 {
	if mask.Empty() {
		return 0
	}

	crop := rect.Clip(image.Rect(0, 0, mask.Cols(), mask.Rows()))
	if crop.Empty() {
		return 0
	}

	view := mask.Region(crop)
	defer view.Close()

	// Contours are traced on a continuous copy so that the crop border acts
	// as the image border.
	region := view.Clone()
	defer region.Close()

	contours := gocv.FindContours(region, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	total := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area >= minContourArea {
			total += area
		}
	}
	return total
}
