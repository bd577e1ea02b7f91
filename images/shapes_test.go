package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRect_Clip validates clipping of ROI boxes against frame bounds.
func TestRect_Clip(t *testing.T) {
	frame := image.Rect(0, 0, 640, 480)

	tests := []struct {
		name     string
		rect     Rect
		expected image.Rectangle
	}{
		{
			name:     "Fully inside",
			rect:     Rect{10, 20, 110, 220},
			expected: image.Rect(10, 20, 110, 220),
		},
		{
			name:     "Partially outside bottom right",
			rect:     Rect{600, 400, 700, 500},
			expected: image.Rect(600, 400, 640, 480),
		},
		{
			name:     "Negative origin",
			rect:     Rect{-50, -50, 50, 50},
			expected: image.Rect(0, 0, 50, 50),
		},
		{
			name:     "Fully outside",
			rect:     Rect{1000, 1000, 1100, 1100},
			expected: image.Rectangle{},
		},
		{
			name:     "Inverted corners",
			rect:     Rect{200, 200, 100, 100},
			expected: image.Rectangle{},
		},
		{
			name:     "Zero width",
			rect:     Rect{100, 100, 100, 200},
			expected: image.Rectangle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rect.Clip(frame)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected.Empty(), got.Empty())
		})
	}
}

func TestRect_Dimensions(t *testing.T) {
	r := NewRect(10, 20, 110, 70)
	assert.False(t, r.Empty())
	assert.Equal(t, 100, r.Width())
	assert.Equal(t, 50, r.Height())
	assert.Equal(t, 5000, r.Area())
	assert.Equal(t, image.Rect(10, 20, 110, 70), r.Rectangle())

	inverted := NewRect(110, 70, 10, 20)
	assert.True(t, inverted.Empty())
	assert.Zero(t, inverted.Area())
	// Corners are kept as given, so the rectangle stays empty.
	assert.True(t, inverted.Rectangle().Empty())
}
