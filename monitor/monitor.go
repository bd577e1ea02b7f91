// Package monitor collects runtime statistics of the motion watcher: frame
// rate, detection counters, the live ROI state and per-stage timings.
package monitor

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nvr-ai/roi-motion/motion"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// fpsWindow is the number of frames between frame-rate updates.
const fpsWindow = 30

// Options configures a Monitor.
type Options struct {
	// ReportInterval specifies how often Run emits a report (default: 10s)
	ReportInterval time.Duration
	// MaxSamples specifies how many timings to keep per operation (default: 600)
	MaxSamples int
	// Clock overrides time.Now.
	Clock  func() time.Time
	Logger *zerolog.Logger
}

// OperationStats summarises the recorded durations of one operation.
type OperationStats struct {
	Count  int64
	Mean   time.Duration
	StdDev time.Duration
	Min    time.Duration
	Max    time.Duration
	P95    time.Duration
}

// Stats is a point-in-time copy of the monitor state.
type Stats struct {
	Uptime        time.Duration
	Frames        int64
	SkippedFrames int64
	// Detections counts frames on which at least one ROI reported motion.
	Detections    int64
	MotionStarts  int64
	LastDetection time.Time
	RainActive    bool
	ROICount      int
	MotionROIs    []int
	FPS           float64
	Operations    map[string]OperationStats
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []float64
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Monitor is safe for concurrent use: the frame loop records while
// reporters read snapshots.
type Monitor struct {
	reportInterval time.Duration
	maxSamples     int
	now            func() time.Time
	logger         zerolog.Logger

	mu         sync.RWMutex
	startTime  time.Time
	stats      Stats
	fpsCounter int
	fpsStart   time.Time
	operations map[string]*TimeTracker
}

// New creates a monitor with the specified options.
//
// Arguments:
// - opts: Configuration options for the monitor
//
// Returns:
// - A configured Monitor instance
func New(opts Options) *Monitor {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	now := opts.Clock()
	return &Monitor{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		now:            opts.Clock,
		logger:         logger.With().Str("component", "monitor").Logger(),
		startTime:      now,
		fpsStart:       now,
		operations:     make(map[string]*TimeTracker),
	}
}

// Observe records the outcome of one processed frame.
func (m *Monitor) Observe(res motion.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Frames++
	m.fpsCounter++
	if m.fpsCounter >= fpsWindow {
		now := m.now()
		if elapsed := now.Sub(m.fpsStart).Seconds(); elapsed > 0 {
			m.stats.FPS = float64(m.fpsCounter) / elapsed
		} else {
			m.stats.FPS = 0
		}
		m.fpsCounter = 0
		m.fpsStart = now
	}

	if res.Skipped {
		m.stats.SkippedFrames++
		return
	}
	if res.WarmingUp {
		return
	}

	if res.MotionDetected {
		m.stats.Detections++
		m.stats.LastDetection = res.Timestamp
	}
	m.stats.RainActive = res.RainActive
	m.stats.ROICount = len(res.Regions)
	m.stats.MotionROIs = m.stats.MotionROIs[:0]
	for _, r := range res.Regions {
		if r.MotionDetected {
			m.stats.MotionROIs = append(m.stats.MotionROIs, r.ID)
		}
		if r.Started {
			m.stats.MotionStarts++
		}
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (m *Monitor) StartOperation(name string) func() {
	start := m.now()
	return func() {
		m.recordOperationTime(name, m.now().Sub(start))
	}
}

// recordOperationTime records the completion time of an operation.
func (m *Monitor) recordOperationTime(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tracker, exists := m.operations[name]
	if !exists {
		tracker = &TimeTracker{
			minTime: duration,
			maxTime: duration,
		}
		m.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, float64(duration))
	if len(tracker.durations) > m.maxSamples {
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Snapshot returns a copy of the current statistics.
func (m *Monitor) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.stats
	s.Uptime = m.now().Sub(m.startTime)
	s.MotionROIs = append([]int(nil), m.stats.MotionROIs...)
	s.Operations = make(map[string]OperationStats, len(m.operations))
	for name, tracker := range m.operations {
		s.Operations[name] = tracker.summary()
	}
	return s
}

// summary computes mean, standard deviation and the 95th percentile over
// the retained samples; Min and Max cover every recorded sample.
func (t *TimeTracker) summary() OperationStats {
	out := OperationStats{Count: t.count, Min: t.minTime, Max: t.maxTime}
	if len(t.durations) == 0 {
		return out
	}

	mean, std := stat.MeanStdDev(t.durations, nil)
	if len(t.durations) < 2 {
		std = 0
	}
	sorted := append([]float64(nil), t.durations...)
	sort.Float64s(sorted)

	out.Mean = time.Duration(mean)
	out.StdDev = time.Duration(std)
	out.P95 = time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil))
	return out
}

// Run emits a report every ReportInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Report()
		}
	}
}

// Report logs the current statistics together with process memory usage.
func (m *Monitor) Report() {
	s := m.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	event := m.logger.Info().
		Dur("uptime", s.Uptime.Truncate(time.Millisecond)).
		Int64("frames", s.Frames).
		Int64("skipped_frames", s.SkippedFrames).
		Float64("fps", s.FPS).
		Int64("detections", s.Detections).
		Int64("motion_starts", s.MotionStarts).
		Bool("rain_active", s.RainActive).
		Int("rois", s.ROICount).
		Ints("motion_rois", s.MotionROIs).
		Int("goroutines", runtime.NumGoroutine()).
		Str("heap_alloc", humanize.IBytes(mem.HeapAlloc)).
		Str("sys", humanize.IBytes(mem.Sys))
	if !s.LastDetection.IsZero() {
		event = event.Time("last_detection", s.LastDetection)
	}
	event.Msg("status report")

	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		op := s.Operations[name]
		m.logger.Debug().
			Str("operation", name).
			Int64("count", op.Count).
			Dur("mean", op.Mean.Truncate(time.Microsecond)).
			Dur("stddev", op.StdDev.Truncate(time.Microsecond)).
			Dur("min", op.Min.Truncate(time.Microsecond)).
			Dur("max", op.Max.Truncate(time.Microsecond)).
			Dur("p95", op.P95.Truncate(time.Microsecond)).
			Msg("operation timing")
	}
}
