// Package testutil provides deterministic frames, foreground masks and a
// scripted segmenter for tests of the motion pipeline.
package testutil

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MockFrameGenerator creates deterministic test frames for idempotent testing.
//
// @example
// gen := NewMockFrameGenerator(640, 480)
// frame := gen.GenerateStaticFrame()
// defer frame.Close()
type MockFrameGenerator struct {
	width  int
	height int
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A configured MockFrameGenerator instance.
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{
		width:  width,
		height: height,
	}
}

// Bounds returns the frame rectangle.
func (g *MockFrameGenerator) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.width, g.height)
}

// GenerateStaticFrame creates a static background frame for baseline testing.
//
// Returns:
// - A grayscale Mat filled with mid-gray.
func (g *MockFrameGenerator) GenerateStaticFrame() gocv.Mat {
	frame := gocv.NewMatWithSize(g.height, g.width, gocv.MatTypeCV8UC1)
	frame.SetTo(gocv.NewScalar(128, 0, 0, 0))
	return frame
}

// GenerateColorFrame creates a static 3-channel BGR frame.
func (g *MockFrameGenerator) GenerateColorFrame() gocv.Mat {
	frame := gocv.NewMatWithSize(g.height, g.width, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(128, 128, 128, 0))
	return frame
}

// GenerateMotionFrame creates a frame with a bright square at a specific position.
//
// Arguments:
// - x: X coordinate of motion region.
// - y: Y coordinate of motion region.
// - size: Size of the motion region in pixels.
//
// Returns:
// - A grayscale Mat containing simulated motion.
func (g *MockFrameGenerator) GenerateMotionFrame(x, y, size int) gocv.Mat {
	frame := g.GenerateStaticFrame()
	gocv.Rectangle(&frame, image.Rect(x, y, x+size, y+size), color.RGBA{255, 255, 255, 0}, -1)
	return frame
}

// BlobMask returns a single-channel mask of the given size with every rect
// filled with 255 and everything else 0.
//
// A filled w x h block traces a contour through its border pixel centres,
// so its contour area is (w-1)*(h-1): a 50x50 blob measures 2401.
func BlobMask(width, height int, rects ...image.Rectangle) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for _, r := range rects {
		gocv.Rectangle(&mask, r, color.RGBA{255, 255, 255, 0}, -1)
	}
	return mask
}

// Scatter lays out count size x size squares on a grid starting at origin,
// perRow per row, with spacing pixels between square origins. It models the
// many small, disconnected blobs rain produces in a foreground mask.
func Scatter(origin image.Point, count, size, spacing, perRow int) []image.Rectangle {
	rects := make([]image.Rectangle, 0, count)
	for i := 0; i < count; i++ {
		x := origin.X + (i%perRow)*spacing
		y := origin.Y + (i/perRow)*spacing
		rects = append(rects, image.Rect(x, y, x+size, y+size))
	}
	return rects
}
