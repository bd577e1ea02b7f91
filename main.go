package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nvr-ai/roi-motion/config"
	"github.com/nvr-ai/roi-motion/controller"
	"github.com/nvr-ai/roi-motion/db"
	"github.com/nvr-ai/roi-motion/monitor"
	"github.com/nvr-ai/roi-motion/motion"
	"github.com/nvr-ai/roi-motion/notify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// deviceID is the ID of the video capture device to use.
	deviceID = 0
	// DefaultReportInterval is how often runtime statistics are logged.
	DefaultReportInterval = 10 * time.Second
)

// Supported file extensions
var supportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// InputType represents the type of input being processed
type InputType int

const (
	InputCamera InputType = iota
	InputVideo
	InputFrames
)

// InputConfig holds the input configuration
type InputConfig struct {
	Type     InputType
	Path     string
	DeviceID int
}

// flags holds the parsed command line.
type flags struct {
	configPath     string
	roiFile        string
	videoPath      string
	framesDir      string
	device         int
	width          uint
	eventsDB       string
	logLevel       string
	reportInterval time.Duration
	frameInterval  time.Duration

	addROI    string
	deleteROI int
	clearROIs bool
	listROIs  bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a JSON tuning file")
	flag.StringVar(&f.roiFile, "rois", "", "Path to the ROI file (overrides roi_config_file)")
	flag.StringVar(&f.videoPath, "video", "", "Path to video file (.mp4, .avi, .mov, .mkv)")
	flag.StringVar(&f.framesDir, "frames", "", "Directory of still frames to replay (jpg, png, bmp, webp)")
	flag.IntVar(&f.device, "device", deviceID, "Video capture device id")
	flag.UintVar(&f.width, "width", 0, "Scale replayed frames down to this width (0 keeps the original)")
	flag.StringVar(&f.eventsDB, "events-db", "", "SQLite file to record motion events in (empty disables)")
	flag.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&f.reportInterval, "report-interval", DefaultReportInterval, "Interval between status reports (0 disables)")
	flag.DurationVar(&f.frameInterval, "frame-interval", 0, "Delay between frames, e.g. 33ms to replay at 30 fps")
	flag.StringVar(&f.addROI, "add-roi", "", "Add an ROI given as x1,y1,x2,y2 and exit")
	flag.IntVar(&f.deleteROI, "delete-roi", 0, "Delete the ROI with this id and exit")
	flag.BoolVar(&f.clearROIs, "clear-rois", false, "Remove all ROIs and exit")
	flag.BoolVar(&f.listROIs, "list-rois", false, "Print the configured ROIs and exit")
	flag.Parse()

	logger := newLogger(f.logLevel)

	if err := run(f, logger); err != nil {
		logger.Fatal().Err(err).Msg("motion watcher stopped")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(f flags, logger zerolog.Logger) error {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if f.roiFile != "" {
		cfg.ROIConfigFile = f.roiFile
	}

	detector, err := motion.New(cfg, motion.Options{Logger: &logger})
	if err != nil {
		return err
	}
	defer detector.Close()

	if done, err := manageROIs(f, detector); done || err != nil {
		return err
	}

	input, err := validateInputFlags(f.videoPath, f.framesDir, f.device)
	if err != nil {
		return err
	}
	source, err := openSource(input, f.width)
	if err != nil {
		return err
	}
	defer source.Close()
	logSource(logger, source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(monitor.Options{ReportInterval: f.reportInterval, Logger: &logger})
	if f.reportInterval > 0 {
		go mon.Run(ctx)
	}

	ctrl := &controller.Controller{
		Source:        source,
		Detector:      detector,
		Alerts:        notify.NewCooldown(notify.NewLog(logger), cfg.Cooldown(), nil),
		Monitor:       mon,
		Logger:        logger.With().Str("component", "controller").Logger(),
		FrameInterval: f.frameInterval,
	}

	if f.eventsDB != "" {
		events, err := db.Open(f.eventsDB, logger)
		if err != nil {
			return err
		}
		defer events.Close()
		ctrl.Events = events
	}

	logger.Info().
		Str("input", describeInput(input)).
		Int("rois", len(detector.ROIs())).
		Float64("motion_threshold", cfg.MotionThreshold).
		Float64("min_contour_area", cfg.MinContourArea).
		Int("max_small_contours", cfg.MaxSmallContours).
		Int("smoothing_frames", cfg.MotionSmoothingFrames).
		Dur("cooldown", cfg.Cooldown()).
		Msg("motion watcher started")
	if len(detector.ROIs()) == 0 {
		logger.Warn().Msg("no ROIs configured; frames are not analysed until one is added")
	}

	err = ctrl.Run(ctx)
	mon.Report()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// manageROIs executes the ROI management flags. It reports true when one of
// them ran and the program should exit.
func manageROIs(f flags, detector *motion.Detector) (bool, error) {
	switch {
	case f.addROI != "":
		coords, err := parseCoords(f.addROI)
		if err != nil {
			return true, err
		}
		r, err := detector.AddROI(coords[0], coords[1], coords[2], coords[3])
		if err != nil {
			return true, err
		}
		fmt.Printf("added ROI %d: %v\n", r.ID, coords)
		return true, nil
	case f.deleteROI != 0:
		if !detector.DeleteROI(f.deleteROI) {
			return true, errors.Errorf("no ROI with id %d", f.deleteROI)
		}
		fmt.Printf("deleted ROI %d\n", f.deleteROI)
		return true, nil
	case f.clearROIs:
		detector.ClearROIs()
		fmt.Println("cleared all ROIs")
		return true, nil
	case f.listROIs:
		rois := detector.ROIs()
		fmt.Printf("%d of %d ROIs configured\n", len(rois), detector.Config().MaxROIs)
		for _, r := range rois {
			fmt.Printf("%d: [%d %d %d %d]\n", r.ID, r.Rect.X1, r.Rect.Y1, r.Rect.X2, r.Rect.Y2)
		}
		return true, nil
	}
	return false, nil
}

// parseCoords parses "x1,y1,x2,y2".
func parseCoords(s string) ([4]int, error) {
	var coords [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return coords, errors.Errorf("ROI must be x1,y1,x2,y2, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return coords, errors.Wrapf(err, "invalid ROI coordinate %q", p)
		}
		coords[i] = v
	}
	return coords, nil
}

// validateInputFlags validates the input flags and returns the input configuration
func validateInputFlags(videoPath, framesDir string, device int) (*InputConfig, error) {
	// Check if both or neither are provided
	if videoPath != "" && framesDir != "" {
		return nil, errors.New("cannot specify both --video and --frames flags")
	}
	if videoPath == "" && framesDir == "" {
		// Default to camera
		return &InputConfig{Type: InputCamera, DeviceID: device}, nil
	}

	if videoPath != "" {
		if err := validateFile(videoPath, supportedVideoExtensions); err != nil {
			return nil, errors.Wrap(err, "video validation error")
		}
		return &InputConfig{Type: InputVideo, Path: videoPath}, nil
	}

	info, err := os.Stat(framesDir)
	if err != nil {
		return nil, errors.Wrap(err, "frames validation error")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("frames validation error: %s is not a directory", framesDir)
	}
	return &InputConfig{Type: InputFrames, Path: framesDir}, nil
}

// validateFile checks if the file exists and has a supported extension
func validateFile(filePath string, supportedExtensions []string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.Errorf("file not found: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range supportedExtensions {
		if ext == supportedExt {
			return nil
		}
	}

	return errors.Errorf("unsupported file extension: %s. Supported extensions: %v", ext, supportedExtensions)
}

func openSource(input *InputConfig, width uint) (controller.FrameSource, error) {
	switch input.Type {
	case InputVideo:
		return controller.OpenVideoSource(input.Path)
	case InputFrames:
		return controller.NewDirectorySource(input.Path, width)
	default:
		return controller.OpenVideoSource(input.DeviceID)
	}
}

func logSource(logger zerolog.Logger, source controller.FrameSource) {
	switch s := source.(type) {
	case *controller.VideoSource:
		logger.Debug().Str("source", s.Name()).Msg("video source opened")
	case *controller.DirectorySource:
		logger.Info().Int("frames", s.Len()).Msg("frame directory loaded")
	}
}

func describeInput(input *InputConfig) string {
	switch input.Type {
	case InputCamera:
		return fmt.Sprintf("camera (device %d)", input.DeviceID)
	case InputVideo:
		return "video: " + input.Path
	case InputFrames:
		return "frames: " + input.Path
	default:
		return "unknown"
	}
}
