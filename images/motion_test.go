package images

import (
	"image"
	"testing"

	"github.com/nvr-ai/roi-motion/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newTestModel() *BackgroundModel {
	return NewBackgroundModel(BackgroundConfig{
		History:       300,
		VarThreshold:  100,
		DetectShadows: true,
	})
}

// TestBackgroundModel_Creation verifies the structuring element and initial state.
func TestBackgroundModel_Creation(t *testing.T) {
	model := newTestModel()
	defer model.Close()

	assert.Equal(t, int64(0), model.Frames())
	assert.False(t, model.kernel.Empty())
	assert.Equal(t, MorphKernelSize, model.kernel.Rows())
	assert.Equal(t, MorphKernelSize, model.kernel.Cols())
}

// TestBackgroundModel_DetectsMotionAfterWarmup feeds a static scene long enough
// for the mixture to converge, then a bright square.
func TestBackgroundModel_DetectsMotionAfterWarmup(t *testing.T) {
	generator := testutil.NewMockFrameGenerator(320, 240)
	model := newTestModel()
	defer model.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	static := generator.GenerateStaticFrame()
	defer static.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, model.Segment(static, &mask))
	}
	assert.Equal(t, int64(50), model.Frames())
	assert.Equal(t, 240, mask.Rows())
	assert.Equal(t, 320, mask.Cols())
	assert.Equal(t, 0, gocv.CountNonZero(mask), "converged static scene should have no foreground")

	moving := generator.GenerateMotionFrame(100, 80, 80)
	defer moving.Close()
	require.NoError(t, model.Segment(moving, &mask))

	region := mask.Region(image.Rect(110, 90, 170, 150))
	defer region.Close()
	assert.Greater(t, gocv.CountNonZero(region), 0, "square interior should be foreground")

	outside := mask.Region(image.Rect(0, 0, 60, 60))
	defer outside.Close()
	assert.Equal(t, 0, gocv.CountNonZero(outside), "untouched corner should stay background")
}

// TestBackgroundModel_MaskIsBinary checks that shadow labels are folded into foreground.
func TestBackgroundModel_MaskIsBinary(t *testing.T) {
	generator := testutil.NewMockFrameGenerator(160, 120)
	model := newTestModel()
	defer model.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	static := generator.GenerateStaticFrame()
	defer static.Close()
	for i := 0; i < 30; i++ {
		require.NoError(t, model.Segment(static, &mask))
	}

	moving := generator.GenerateMotionFrame(40, 30, 40)
	defer moving.Close()
	require.NoError(t, model.Segment(moving, &mask))

	for y := 0; y < mask.Rows(); y++ {
		for x := 0; x < mask.Cols(); x++ {
			v := mask.GetUCharAt(y, x)
			if v != 0 && v != 255 {
				t.Fatalf("mask value %d at (%d,%d) is not binary", v, x, y)
			}
		}
	}
}

func TestBackgroundModel_AcceptsColorFrames(t *testing.T) {
	generator := testutil.NewMockFrameGenerator(160, 120)
	model := newTestModel()
	defer model.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	frame := generator.GenerateColorFrame()
	defer frame.Close()

	require.NoError(t, model.Segment(frame, &mask))
	assert.Equal(t, 1, mask.Channels())
	assert.Equal(t, 120, mask.Rows())
}

func TestBackgroundModel_RejectsBadFrames(t *testing.T) {
	model := newTestModel()
	defer model.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	empty := gocv.NewMat()
	defer empty.Close()
	err := model.Segment(empty, &mask)
	assert.True(t, errors.Is(err, ErrEmptyFrame))
	assert.Equal(t, int64(0), model.Frames())

	small := testutil.NewMockFrameGenerator(160, 120).GenerateStaticFrame()
	defer small.Close()
	require.NoError(t, model.Segment(small, &mask))

	large := testutil.NewMockFrameGenerator(320, 240).GenerateStaticFrame()
	defer large.Close()
	err = model.Segment(large, &mask)
	assert.True(t, errors.Is(err, ErrFrameSize))
	assert.Equal(t, int64(1), model.Frames())

	model.Reset()
	assert.Equal(t, int64(0), model.Frames())
	require.NoError(t, model.Segment(large, &mask))
	assert.Equal(t, 320, mask.Cols())
}

// TestBackgroundModel_Deterministic runs two fresh models over the same
// frames and expects identical masks.
func TestBackgroundModel_Deterministic(t *testing.T) {
	generator := testutil.NewMockFrameGenerator(160, 120)
	static := generator.GenerateStaticFrame()
	defer static.Close()
	moving := generator.GenerateMotionFrame(40, 30, 40)
	defer moving.Close()

	run := func() string {
		model := newTestModel()
		defer model.Close()
		mask := gocv.NewMat()
		defer mask.Close()

		for i := 0; i < 20; i++ {
			require.NoError(t, model.Segment(static, &mask))
		}
		require.NoError(t, model.Segment(moving, &mask))
		return MatChecksum(mask)
	}

	first := run()
	assert.NotEqual(t, "empty", first)
	assert.Equal(t, first, run())
}

func TestMatChecksum(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.Equal(t, "empty", MatChecksum(empty))

	a := testutil.BlobMask(64, 48, image.Rect(0, 0, 10, 10))
	defer a.Close()
	b := testutil.BlobMask(64, 48, image.Rect(0, 0, 10, 10))
	defer b.Close()
	c := testutil.BlobMask(64, 48, image.Rect(5, 5, 15, 15))
	defer c.Close()

	assert.Equal(t, MatChecksum(a), MatChecksum(b))
	assert.NotEqual(t, MatChecksum(a), MatChecksum(c))

	// A non-continuous view hashes like its copy.
	view := a.Region(image.Rect(0, 0, 32, 24))
	defer view.Close()
	copied := view.Clone()
	defer copied.Close()
	assert.Equal(t, MatChecksum(copied), MatChecksum(view))
}
