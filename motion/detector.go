// Package motion turns video frames into per-ROI motion decisions.
//
// Each frame flows through the stages below; the background model is shared
// by all ROIs, everything after rain classification runs per ROI:
//
//	frame ─► Segmenter (mask) ─► ClassifyRain ─┐
//	                                            ▼
//	          for each ROI: ScoreRegion ─► History window ─► rain gate
//
// The Detector is driven by one worker goroutine. ROI edits may arrive from
// other goroutines at any time; they share the roi.Store lock with Process.
package motion

import (
	"sync/atomic"
	"time"

	"github.com/nvr-ai/roi-motion/config"
	"github.com/nvr-ai/roi-motion/images"
	"github.com/nvr-ai/roi-motion/roi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Segmenter produces the binary foreground mask for a frame.
// *images.BackgroundModel is the production implementation.
type Segmenter interface {
	Segment(frame gocv.Mat, mask *gocv.Mat) error
	Close() error
}

// resetter is implemented by segmenters that can discard their learned
// background, such as *images.BackgroundModel.
type resetter interface {
	Reset()
}

// Options carries the optional collaborators of a Detector. Zero values
// select the defaults: a no-op logger, time.Now, a MOG2 background model
// built from the config and an empty store sized from the config.
type Options struct {
	Logger    *zerolog.Logger
	Clock     func() time.Time
	Segmenter Segmenter
	Store     *roi.Store
}

// RegionResult is the outcome of one frame for one ROI.
type RegionResult struct {
	ID   int
	Rect images.Rect
	// Area is the summed qualifying contour area inside the ROI.
	Area float64
	// RawMotion is Area > motion_threshold for this frame alone.
	RawMotion bool
	// Confirmed is the smoothed decision before the rain gate.
	Confirmed bool
	// MotionDetected is Confirmed with the rain gate applied.
	MotionDetected bool
	// Started is set on the frame where MotionDetected turns true.
	Started bool
}

// Result is the aggregate outcome of one Process call.
type Result struct {
	Timestamp      time.Time
	MotionDetected bool
	RainActive     bool
	ActiveROIs     int
	SmallContours  int
	// Skipped is set when the frame could not be segmented, e.g. an empty
	// input.
	Skipped bool
	// WarmingUp is set while the background model is still inside the
	// configured warm-up period; no ROI is scored.
	WarmingUp bool
	Regions   []RegionResult
}

// Detector is the frame pipeline. It owns the background model, the mask
// buffer and the ROI store.
type Detector struct {
	cfg       config.Config
	store     *roi.Store
	segmenter Segmenter
	mask      gocv.Mat
	logger    zerolog.Logger
	now       func() time.Time

	frames     int
	rainActive atomic.Bool
}

// New builds a Detector and loads any ROIs persisted at cfg.ROIConfigFile.
// A missing or unreadable ROI file leaves the store empty and is logged.
//
// Arguments:
//   - cfg: Validated detector configuration.
//   - opts: Optional collaborators.
//
// Returns:
//   - The detector; call Close when done.
//   - An error if cfg is invalid.
//
// @example
// det, err := motion.New(config.Default(), motion.Options{})
// if err != nil { ... }
// defer det.Close()
// det.AddROI(100, 100, 300, 300)
// res := det.Process(frame)
func New(cfg config.Config, opts Options) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "motion").Logger()

	d := &Detector{
		cfg:       cfg,
		store:     opts.Store,
		segmenter: opts.Segmenter,
		mask:      gocv.NewMat(),
		logger:    logger,
		now:       opts.Clock,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.store == nil {
		d.store = roi.NewStore(cfg.MaxROIs, cfg.MotionSmoothingFrames, logger)
	}
	if d.segmenter == nil {
		d.segmenter = images.NewBackgroundModel(images.BackgroundConfig{
			History:       cfg.BackgroundHistory,
			VarThreshold:  cfg.BackgroundVarThreshold,
			DetectShadows: cfg.BackgroundDetectShadows,
		})
	}

	if cfg.ROIConfigFile != "" {
		if _, err := d.store.Load(cfg.ROIConfigFile); err != nil {
			d.logger.Error().Err(err).Str("path", cfg.ROIConfigFile).Msg("failed to load ROIs")
		}
	}

	return d, nil
}

// Process runs one frame through the pipeline. It never fails: frames that
// cannot be segmented are reported as Skipped with no motion, and every ROI
// reads as motionless until a frame is scored again. A change of frame size
// rebuilds the background model and restarts warm-up.
//
// Arguments:
//   - frame: BGR, BGRA or grayscale frame of the monitored stream.
//
// Returns:
//   - The aggregate and per-ROI outcome for this frame.
func (d *Detector) Process(frame gocv.Mat) Result {
	res := Result{Timestamp: d.now()}

	if d.store.Len() == 0 {
		d.rainActive.Store(false)
		return res
	}

	if err := d.segment(frame); err != nil {
		d.logger.Warn().Err(err).Msg("skipping frame")
		d.store.ClearMotion()
		res.Skipped = true
		return res
	}
	if d.mask.Empty() {
		d.store.ClearMotion()
		res.Skipped = true
		return res
	}

	d.frames++
	if d.frames <= d.cfg.WarmupFrames {
		d.store.ClearMotion()
		res.WarmingUp = true
		return res
	}

	rain, small := ClassifyRain(d.mask, d.cfg.MinContourArea, d.cfg.MaxSmallContours)
	d.rainActive.Store(rain)
	res.RainActive = rain
	res.SmallContours = small

	d.store.Each(func(r *roi.ROI, h *roi.History) {
		area := ScoreRegion(d.mask, r.Rect, d.cfg.MinContourArea)
		raw := area > d.cfg.MotionThreshold
		h.Push(raw)

		confirmed := h.Confirmed()
		detected := confirmed && !rain
		region := RegionResult{
			ID:             r.ID,
			Rect:           r.Rect,
			Area:           area,
			RawMotion:      raw,
			Confirmed:      confirmed,
			MotionDetected: detected,
			Started:        detected && !r.MotionDetected,
		}

		switch {
		case region.Started:
			d.logger.Info().
				Time("frame_time", res.Timestamp).
				Int("roi_id", r.ID).
				Float64("area", area).
				Bool("rain_active", rain).
				Msg("motion confirmed")
		case confirmed && rain:
			d.logger.Debug().
				Time("frame_time", res.Timestamp).
				Int("roi_id", r.ID).
				Float64("area", area).
				Int("small_contours", small).
				Msg("motion suppressed by rain filter")
		}

		r.MotionDetected = detected
		if detected {
			t := res.Timestamp
			r.LastMotionTime = &t
			res.MotionDetected = true
			res.ActiveROIs++
		}
		res.Regions = append(res.Regions, region)
	})

	return res
}

// AddROI adds a region and persists the set.
//
// Returns:
//   - The stored ROI with its assigned id.
//   - roi.ErrCapacity (wrapped) when max_rois regions already exist.
func (d *Detector) AddROI(x1, y1, x2, y2 int) (roi.ROI, error) {
	r, err := d.store.Add(images.NewRect(x1, y1, x2, y2))
	if err != nil {
		return r, err
	}
	d.autoSave()
	return r, nil
}

// DeleteROI removes a region and its motion history, and reports whether it
// existed.
func (d *Detector) DeleteROI(id int) bool {
	if !d.store.Delete(id) {
		return false
	}
	d.autoSave()
	return true
}

// ClearROIs removes every region.
func (d *Detector) ClearROIs() {
	d.store.Clear()
	d.autoSave()
}

// SaveROIs writes the ROI set to path, or to the configured file when path
// is empty.
func (d *Detector) SaveROIs(path string) error {
	path = d.roiPath(path)
	if path == "" {
		return errors.New("no ROI file configured")
	}
	return d.store.Save(path)
}

// LoadROIs replaces the ROI set with the contents of path, or of the
// configured file when path is empty. It returns false with no error when
// the file does not exist.
func (d *Detector) LoadROIs(path string) (bool, error) {
	path = d.roiPath(path)
	if path == "" {
		return false, errors.New("no ROI file configured")
	}
	return d.store.Load(path)
}

// ROIs returns a snapshot of the ROI set with live motion flags.
func (d *Detector) ROIs() []roi.ROI {
	return d.store.List()
}

// RainActive reports the rain flag of the most recently scored frame.
func (d *Detector) RainActive() bool {
	return d.rainActive.Load()
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() config.Config {
	return d.cfg
}

// Close releases the background model and the mask buffer.
func (d *Detector) Close() error {
	err := d.segmenter.Close()
	if cerr := d.mask.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return err
}

// segment writes the foreground mask of frame into d.mask. When the stream
// changes resolution the background model is rebuilt on the new size, the
// motion windows start over and warm-up runs again.
func (d *Detector) segment(frame gocv.Mat) error {
	err := d.segmenter.Segment(frame, &d.mask)
	if !errors.Is(err, images.ErrFrameSize) {
		return err
	}
	r, ok := d.segmenter.(resetter)
	if !ok {
		return err
	}

	d.logger.Warn().Err(err).Msg("frame size changed, resetting background model")
	r.Reset()
	d.frames = 0
	d.store.ResetMotion()
	return d.segmenter.Segment(frame, &d.mask)
}

func (d *Detector) roiPath(path string) string {
	if path != "" {
		return path
	}
	return d.cfg.ROIConfigFile
}

// autoSave persists the ROI set after an edit. A failed save keeps the edit.
func (d *Detector) autoSave() {
	if d.cfg.ROIConfigFile == "" {
		return
	}
	if err := d.store.Save(d.cfg.ROIConfigFile); err != nil {
		d.logger.Error().Err(err).Str("path", d.cfg.ROIConfigFile).Msg("failed to save ROIs")
	}
}
