package testutil

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MaskSequence is a scripted segmenter: each successful call to Segment
// emits the next prepared mask and the last one repeats once the script is
// exhausted. It stands in for a warmed-up background model so tests control
// exactly what the downstream stages see.
type MaskSequence struct {
	masks  []gocv.Mat
	served int
	Calls  int
	Resets int
	// Err, when set, is returned by every Segment call instead of a mask.
	Err error
	// ErrAt maps a 1-based call number to an error returned by that call
	// only. Failed calls do not consume a mask.
	ErrAt map[int]error
}

// NewMaskSequence takes ownership of masks; Close releases them.
func NewMaskSequence(masks ...gocv.Mat) *MaskSequence {
	return &MaskSequence{masks: masks}
}

// Segment copies the next scripted mask into mask.
func (s *MaskSequence) Segment(frame gocv.Mat, mask *gocv.Mat) error {
	s.Calls++
	if s.Err != nil {
		return s.Err
	}
	if err, ok := s.ErrAt[s.Calls]; ok {
		return err
	}
	if len(s.masks) == 0 {
		return errors.New("mask sequence is empty")
	}
	i := min(s.served, len(s.masks)-1)
	s.served++
	return s.masks[i].CopyTo(mask)
}

// Reset records that the caller discarded the model.
func (s *MaskSequence) Reset() {
	s.Resets++
}

// Close releases the scripted masks.
func (s *MaskSequence) Close() error {
	for _, m := range s.masks {
		m.Close()
	}
	s.masks = nil
	return nil
}
