package roi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_Majority(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		pushes    []bool
		confirmed bool
	}{
		{name: "not full", size: 3, pushes: []bool{true, true}, confirmed: false},
		{name: "two of three", size: 3, pushes: []bool{true, false, true}, confirmed: true},
		{name: "one of three", size: 3, pushes: []bool{false, false, true}, confirmed: false},
		{name: "oldest evicted", size: 3, pushes: []bool{true, true, false, false}, confirmed: false},
		{name: "window of one", size: 1, pushes: []bool{true}, confirmed: true},
		{name: "even window needs strict majority", size: 4, pushes: []bool{true, true, false, false}, confirmed: false},
		{name: "even window three of four", size: 4, pushes: []bool{true, false, true, true}, confirmed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(tt.size)
			for _, v := range tt.pushes {
				h.Push(v)
			}
			assert.Equal(t, tt.confirmed, h.Confirmed())
			assert.LessOrEqual(t, h.Len(), tt.size)
		})
	}
}

func TestHistory_Values(t *testing.T) {
	h := NewHistory(3)
	for _, v := range []bool{true, false, true, true} {
		h.Push(v)
	}
	assert.Equal(t, []bool{false, true, true}, h.Values())
	assert.Equal(t, 2, h.Majority())
	assert.True(t, h.Full())

	values := h.Values()
	values[0] = true
	assert.Equal(t, 2, h.Positives(), "Values must return a copy")

	h.Reset()
	assert.Zero(t, h.Len())
	assert.False(t, h.Confirmed())
}

func TestNewHistory_MinimumSize(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Size())
}
