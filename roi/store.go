// Package roi manages the user-defined regions of interest watched for motion,
// their per-region motion history, and their persistence.
package roi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvr-ai/roi-motion/images"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrCapacity is returned by Add when the store already holds the maximum
// number of ROIs.
var ErrCapacity = errors.New("maximum number of ROIs reached")

// ROI is a rectangular region monitored independently for motion.
type ROI struct {
	ID   int
	Rect images.Rect
	// MotionDetected is the confirmed, rain-gated motion state as of the
	// last processed frame.
	MotionDetected bool
	// LastMotionTime is the time of the most recent frame that reported
	// motion for this ROI, or nil.
	LastMotionTime *time.Time
}

func (r ROI) clone() ROI {
	if r.LastMotionTime != nil {
		t := *r.LastMotionTime
		r.LastMotionTime = &t
	}
	return r
}

// record is the persisted form of an ROI.
type record struct {
	ID             int      `json:"id"`
	Coords         [4]int   `json:"coords"`
	MotionDetected bool     `json:"motion_detected"`
	LastMotionTime *float64 `json:"last_motion_time"`
}

func toRecord(r *ROI) record {
	rec := record{
		ID:             r.ID,
		Coords:         [4]int{r.Rect.X1, r.Rect.Y1, r.Rect.X2, r.Rect.Y2},
		MotionDetected: r.MotionDetected,
	}
	if r.LastMotionTime != nil {
		secs := float64(r.LastMotionTime.UnixNano()) / float64(time.Second)
		rec.LastMotionTime = &secs
	}
	return rec
}

func fromRecord(rec record) *ROI {
	r := &ROI{
		ID:             rec.ID,
		Rect:           images.NewRect(rec.Coords[0], rec.Coords[1], rec.Coords[2], rec.Coords[3]),
		MotionDetected: rec.MotionDetected,
	}
	if rec.LastMotionTime != nil {
		t := time.Unix(0, int64(*rec.LastMotionTime*float64(time.Second)))
		r.LastMotionTime = &t
	}
	return r
}

// Store holds the configured ROIs in insertion order together with one
// motion History per ROI. A single mutex guards both, so the frame worker
// and control-path edits can share a Store.
type Store struct {
	mu      sync.Mutex
	maxROIs int
	window  int
	order   []int
	byID    map[int]*ROI
	history map[int]*History
	logger  zerolog.Logger
}

// NewStore returns an empty store that holds at most maxROIs regions, each
// with a smoothing window of the given size.
func NewStore(maxROIs, window int, logger zerolog.Logger) *Store {
	return &Store{
		maxROIs: maxROIs,
		window:  window,
		byID:    make(map[int]*ROI),
		history: make(map[int]*History),
		logger:  logger,
	}
}

// Add appends a new ROI with id max(existing)+1. Coordinates are stored as
// given; a degenerate or off-frame rectangle is accepted and simply never
// reports motion. Returns ErrCapacity when the store is full.
func (s *Store) Add(rect images.Rect) (ROI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) >= s.maxROIs {
		return ROI{}, errors.Wrapf(ErrCapacity, "limit is %d", s.maxROIs)
	}

	id := 0
	for _, existing := range s.order {
		id = max(id, existing)
	}
	id++

	r := &ROI{ID: id, Rect: rect}
	s.order = append(s.order, id)
	s.byID[id] = r
	s.history[id] = NewHistory(s.window)

	s.logger.Info().Int("roi_id", id).
		Ints("coords", []int{rect.X1, rect.Y1, rect.X2, rect.Y2}).
		Msg("added ROI")
	return r.clone(), nil
}

// Delete removes the ROI with the given id and its history. It reports
// whether a match was found.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	delete(s.history, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.logger.Info().Int("roi_id", id).Msg("deleted ROI")
	return true
}

// Clear removes every ROI and all motion history.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.byID = make(map[int]*ROI)
	s.history = make(map[int]*History)
	s.logger.Info().Msg("cleared all ROIs")
}

// Len returns the number of configured ROIs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// ClearMotion drops the motion flag of every ROI. Histories and last
// motion times are kept.
func (s *Store) ClearMotion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.byID {
		r.MotionDetected = false
	}
}

// ResetMotion drops the motion flag of every ROI and empties every history,
// so smoothing starts over.
func (s *Store) ResetMotion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.byID {
		r.MotionDetected = false
		if h, ok := s.history[id]; ok {
			h.Reset()
		}
	}
}

// List returns copies of all ROIs in insertion order, with their live
// motion flags.
func (s *Store) List() []ROI {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ROI, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].clone())
	}
	return out
}

// History returns a copy of the motion window for the given ROI.
func (s *Store) History(id int) ([]bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[id]
	if !ok {
		return nil, false
	}
	return h.Values(), true
}

// Each calls fn for every ROI in insertion order while holding the store
// lock. fn may mutate the ROI and its history but must not call back into
// the store.
func (s *Store) Each(fn func(r *ROI, h *History)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		h, ok := s.history[id]
		if !ok {
			h = NewHistory(s.window)
			s.history[id] = h
		}
		fn(s.byID[id], h)
	}
}

// Save writes the ROIs as a JSON array of records in insertion order,
// creating the parent directory if needed.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	records := make([]record, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, toRecord(s.byID[id]))
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode ROIs")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create ROI directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write ROIs to %s", path)
	}

	s.logger.Info().Str("path", path).Int("count", len(records)).Msg("ROIs saved")
	return nil
}

// Load replaces the ROI set with the records in path. It returns false and
// no error when the file does not exist. On any read or parse failure the
// current set is left untouched. Records beyond the capacity, with a
// non-positive id or with a duplicate id are skipped. Motion histories
// start empty after a load.
func (s *Store) Load(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info().Str("path", path).Msg("no ROI config file found")
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to read ROIs from %s", path)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return false, errors.Wrapf(err, "failed to parse ROIs in %s", path)
	}

	order := make([]int, 0, len(records))
	byID := make(map[int]*ROI, len(records))
	history := make(map[int]*History, len(records))
	for _, rec := range records {
		switch {
		case len(order) >= s.maxROIs:
			s.logger.Warn().Int("roi_id", rec.ID).Int("max_rois", s.maxROIs).Msg("skipping ROI beyond capacity")
			continue
		case rec.ID <= 0:
			s.logger.Warn().Int("roi_id", rec.ID).Msg("skipping ROI with non-positive id")
			continue
		case byID[rec.ID] != nil:
			s.logger.Warn().Int("roi_id", rec.ID).Msg("skipping duplicate ROI id")
			continue
		}
		order = append(order, rec.ID)
		byID[rec.ID] = fromRecord(rec)
		history[rec.ID] = NewHistory(s.window)
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.history = history
	s.mu.Unlock()

	s.logger.Info().Str("path", path).Int("count", len(order)).Msg("ROIs loaded")
	return true, nil
}
