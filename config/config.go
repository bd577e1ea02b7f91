// Package config holds the tuning parameters of the ROI motion detector.
//
// The defaults mirror a webcam/IR-camera setup at roughly 30 fps. A JSON
// file may override any subset of them; omitted fields keep their defaults,
// so partial files are safe.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DefaultROIConfigFile is where ROIs are persisted unless overridden.
const DefaultROIConfigFile = "config/rois.json"

// maxFileSize bounds the size of a configuration file.
const maxFileSize = 1 << 20

// ErrInvalid is returned by Validate for out-of-range parameters.
var ErrInvalid = errors.New("invalid detector configuration")

// Config parameterises every stage of the motion pipeline. It is treated as
// immutable once a detector has been built from it.
type Config struct {
	// MotionThreshold is the summed contour area an ROI must exceed to count
	// as raw motion for a frame.
	MotionThreshold float64 `json:"motion_threshold"`
	// MinContourArea is the smallest single contour counted toward ROI motion.
	// Smaller contours feed the rain classifier instead.
	MinContourArea float64 `json:"min_contour_area"`
	// MaxSmallContours is the number of small contours above which a frame
	// is flagged as rain/noise.
	MaxSmallContours int `json:"max_small_contours"`
	// MotionSmoothingFrames is the temporal window size per ROI.
	MotionSmoothingFrames int `json:"motion_smoothing_frames"`
	// MaxROIs caps the number of concurrently configured ROIs.
	MaxROIs int `json:"max_rois"`

	BackgroundHistory       int     `json:"bg_history"`
	BackgroundVarThreshold  float64 `json:"bg_var_threshold"`
	BackgroundDetectShadows bool    `json:"bg_detect_shadows"`

	// ROIConfigFile is the path ROIs are loaded from at startup and saved to
	// after every edit. Empty disables persistence.
	ROIConfigFile string `json:"roi_config_file"`

	// NotificationCooldown is the minimum number of seconds between alerts.
	NotificationCooldown float64 `json:"notification_cooldown"`
	// WarmupFrames is the number of frames fed to the background model before
	// any ROI is scored. Zero disables the warm-up gate.
	WarmupFrames int `json:"warmup_frames"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		MotionThreshold:         800,
		MinContourArea:          1500,
		MaxSmallContours:        50,
		MotionSmoothingFrames:   3,
		MaxROIs:                 4,
		BackgroundHistory:       300,
		BackgroundVarThreshold:  100,
		BackgroundDetectShadows: true,
		ROIConfigFile:           DefaultROIConfigFile,
		NotificationCooldown:    2.0,
		WarmupFrames:            0,
	}
}

// Load reads a JSON configuration file on top of Default and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, errors.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to stat config file")
	}
	if info.Size() > maxFileSize {
		return cfg, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", cleanPath)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first parameter that cannot drive the pipeline.
func (c Config) Validate() error {
	switch {
	case c.MotionThreshold < 0:
		return errors.Wrapf(ErrInvalid, "motion_threshold must be >= 0, got %v", c.MotionThreshold)
	case c.MinContourArea < 0:
		return errors.Wrapf(ErrInvalid, "min_contour_area must be >= 0, got %v", c.MinContourArea)
	case c.MaxSmallContours < 0:
		return errors.Wrapf(ErrInvalid, "max_small_contours must be >= 0, got %d", c.MaxSmallContours)
	case c.MotionSmoothingFrames < 1:
		return errors.Wrapf(ErrInvalid, "motion_smoothing_frames must be >= 1, got %d", c.MotionSmoothingFrames)
	case c.MaxROIs < 1:
		return errors.Wrapf(ErrInvalid, "max_rois must be >= 1, got %d", c.MaxROIs)
	case c.BackgroundHistory < 1:
		return errors.Wrapf(ErrInvalid, "bg_history must be >= 1, got %d", c.BackgroundHistory)
	case c.BackgroundVarThreshold <= 0:
		return errors.Wrapf(ErrInvalid, "bg_var_threshold must be > 0, got %v", c.BackgroundVarThreshold)
	case c.NotificationCooldown < 0:
		return errors.Wrapf(ErrInvalid, "notification_cooldown must be >= 0, got %v", c.NotificationCooldown)
	case c.WarmupFrames < 0:
		return errors.Wrapf(ErrInvalid, "warmup_frames must be >= 0, got %d", c.WarmupFrames)
	}
	return nil
}

// Cooldown returns NotificationCooldown as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.NotificationCooldown * float64(time.Second))
}
