package roi

// History is the sliding window of raw per-frame motion decisions for one
// ROI. It holds at most size entries; pushing beyond that evicts the oldest.
type History struct {
	size    int
	entries []bool
}

// NewHistory returns an empty window of the given size (minimum 1).
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{size: size, entries: make([]bool, 0, size+1)}
}

// Push appends a decision, evicting the oldest one if the window overflows.
func (h *History) Push(motion bool) {
	h.entries = append(h.entries, motion)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Size returns the window capacity.
func (h *History) Size() int {
	return h.size
}

// Len returns the number of decisions currently held.
func (h *History) Len() int {
	return len(h.entries)
}

// Full reports whether the window holds size decisions.
func (h *History) Full() bool {
	return len(h.entries) >= h.size
}

// Positives counts the true decisions in the window.
func (h *History) Positives() int {
	n := 0
	for _, v := range h.entries {
		if v {
			n++
		}
	}
	return n
}

// Majority is the number of positives needed for confirmation: size/2 + 1.
func (h *History) Majority() int {
	return h.size/2 + 1
}

// Confirmed reports sustained motion: the window is full and a strict
// majority of it is positive (2 of 3 with the default size).
func (h *History) Confirmed() bool {
	return h.Full() && h.Positives() >= h.Majority()
}

// Values returns a copy of the window, oldest first.
func (h *History) Values() []bool {
	out := make([]bool, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset empties the window.
func (h *History) Reset() {
	h.entries = h.entries[:0]
}
