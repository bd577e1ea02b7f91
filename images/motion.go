// Package images - This file contains the background model that turns video
// frames into a binary foreground mask using OpenCV (via gocv).
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ Input Frame  │ BGR, BGRA or grayscale
// └──────┬───────┘
// ┌────────────────────────────────────┐
// │ Grayscale + Gaussian blur (5x5)    │
// └──────┬─────────────────────────────┘
// ┌────────────────────────────┐
// │ Background Subtraction     │
// │ (MOG2, shadows optional)   │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Binarise (non-zero → 255)  │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Morphology: close, open    │
// │ (5x5 ellipse)              │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Foreground Mask Output     │
// └────────────────────────────┘
//
// Warm-up caveat: MOG2 has no separate training phase. Every call to Segment
// both classifies the frame and updates the per-pixel statistics, so the
// first few dozen frames after construction (or Reset) produce unreliable
// masks until the mixture converges. Callers that need stable output should
// discard or gate the early frames; there is no fit/predict split to lean on.
//
// Note: You must call Close() when finished to release native resources.
package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// BlurKernelSize is the Gaussian kernel applied before modelling.
	BlurKernelSize = 5
	// MorphKernelSize is the elliptical structuring element used to clean the mask.
	MorphKernelSize = 5
)

var (
	// ErrEmptyFrame is returned when Segment receives an empty Mat.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrFrameSize is returned when a frame's size differs from the size the
	// model was built on.
	ErrFrameSize = errors.New("frame size changed")
)

// BackgroundConfig tunes the MOG2 background subtractor.
type BackgroundConfig struct {
	// History is the number of frames that shape the background statistics.
	History int
	// VarThreshold is the squared Mahalanobis distance a pixel must exceed
	// to be labelled foreground.
	VarThreshold float64
	// DetectShadows enables shadow labelling. Shadow pixels still end up in
	// the foreground mask after binarisation.
	DetectShadows bool
}

// BackgroundModel encapsulates the per-pixel Gaussian-mixture model of the
// empty scene and the scratch matrices used to build a clean foreground mask.
//
// The struct is stateful and meant to be reused across frames of a single
// stream. It is not safe for concurrent use.
type BackgroundModel struct {
	config     BackgroundConfig
	gray       gocv.Mat
	blurred    gocv.Mat
	raw        gocv.Mat
	kernel     gocv.Mat
	subtractor gocv.BackgroundSubtractorMOG2
	size       image.Point
	frames     int64
}

// NewBackgroundModel constructs a model with initialised OpenCV matrices.
//
// Arguments:
//   - config: MOG2 tuning parameters.
//
// Returns:
//   - *BackgroundModel: ready to Segment frames. Always call Close().
//
// @example
// model := images.NewBackgroundModel(images.BackgroundConfig{History: 300, VarThreshold: 100, DetectShadows: true})
// defer model.Close()
func NewBackgroundModel(config BackgroundConfig) *BackgroundModel {
	return &BackgroundModel{
		config:     config,
		gray:       gocv.NewMat(),
		blurred:    gocv.NewMat(),
		raw:        gocv.NewMat(),
		kernel:     gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(MorphKernelSize, MorphKernelSize)),
		subtractor: newSubtractor(config),
	}
}

func newSubtractor(config BackgroundConfig) gocv.BackgroundSubtractorMOG2 {
	return gocv.NewBackgroundSubtractorMOG2WithParams(config.History, config.VarThreshold, config.DetectShadows)
}

// Segment runs one frame through the model and writes the cleaned binary
// foreground mask (0 or 255 per pixel, same size as the frame) into mask.
//
// Arguments:
//   - frame: the decoded video frame.
//   - mask: destination Mat, reallocated as needed.
//
// Returns:
//   - ErrEmptyFrame if the frame has no pixels.
//   - ErrFrameSize if the frame size differs from the first frame seen.
//   - a wrapped OpenCV error if any stage fails.
func (m *BackgroundModel) Segment(frame gocv.Mat, mask *gocv.Mat) error {
	if frame.Empty() || frame.Rows() == 0 || frame.Cols() == 0 {
		return ErrEmptyFrame
	}

	size := image.Pt(frame.Cols(), frame.Rows())
	if m.frames == 0 {
		m.size = size
	} else if size != m.size {
		return errors.Wrapf(ErrFrameSize, "got %dx%d, model built on %dx%d", size.X, size.Y, m.size.X, m.size.Y)
	}

	if err := ToGray(frame, &m.gray); err != nil {
		return err
	}

	// Suppress sensor noise before it reaches the model.
	if err := gocv.GaussianBlur(m.gray, &m.blurred, image.Pt(BlurKernelSize, BlurKernelSize), 0, 0, gocv.BorderDefault); err != nil {
		return errors.Wrap(err, "gaussian blur failed")
	}

	if err := m.subtractor.Apply(m.blurred, &m.raw); err != nil {
		return errors.Wrap(err, "background subtraction failed")
	}
	m.frames++

	// Shadows come out as 127; anything non-zero is foreground.
	gocv.Threshold(m.raw, &m.raw, 0, 255, gocv.ThresholdBinary)

	// Close merges nearby blobs, open removes isolated speckles.
	if err := gocv.MorphologyEx(m.raw, mask, gocv.MorphClose, m.kernel); err != nil {
		return errors.Wrap(err, "morphological close failed")
	}
	if err := gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, m.kernel); err != nil {
		return errors.Wrap(err, "morphological open failed")
	}

	return nil
}

// Frames returns the number of frames applied since construction or Reset.
func (m *BackgroundModel) Frames() int64 {
	return m.frames
}

// Reset discards the learned background. The next frame starts a new
// warm-up period and may have a different size.
func (m *BackgroundModel) Reset() {
	m.subtractor.Close()
	m.subtractor = newSubtractor(m.config)
	m.frames = 0
	m.size = image.Point{}
}

// Close releases all OpenCV native resources used by the model.
func (m *BackgroundModel) Close() error {
	m.gray.Close()
	m.blurred.Close()
	m.raw.Close()
	m.kernel.Close()
	m.subtractor.Close()
	return nil
}

// ToGray converts a BGR, BGRA or single-channel frame to an 8-bit grayscale Mat.
func ToGray(src gocv.Mat, dst *gocv.Mat) error {
	switch src.Channels() {
	case 1:
		if err := src.CopyTo(dst); err != nil {
			return errors.Wrap(err, "copy grayscale frame")
		}
	case 3:
		if err := gocv.CvtColor(src, dst, gocv.ColorBGRToGray); err != nil {
			return errors.Wrap(err, "convert BGR frame to gray")
		}
	case 4:
		if err := gocv.CvtColor(src, dst, gocv.ColorBGRAToGray); err != nil {
			return errors.Wrap(err, "convert BGRA frame to gray")
		}
	default:
		return errors.Errorf("unsupported channel count %d", src.Channels())
	}
	return nil
}
