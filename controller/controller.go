// Package controller - This file contains the run loop that feeds frames from a
// source through the motion detector and routes its results to notifiers.
package controller

import (
	"context"
	"io"
	"time"

	"github.com/nvr-ai/roi-motion/monitor"
	"github.com/nvr-ai/roi-motion/motion"
	"github.com/nvr-ai/roi-motion/notify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// FrameProcessor runs one frame through the motion pipeline.
// *motion.Detector is the production implementation.
type FrameProcessor interface {
	Process(frame gocv.Mat) motion.Result
}

// Controller owns the frame loop. It is the single worker that drives the
// detector; ROI edits happen elsewhere, directly on the detector.
type Controller struct {
	Source   FrameSource
	Detector FrameProcessor
	// Events receives one event per ROI when its motion starts.
	Events notify.Notifier
	// Alerts receives an event for every ROI in motion on every frame;
	// wrap it in a notify.Cooldown to rate-limit.
	Alerts  notify.Notifier
	Monitor *monitor.Monitor
	Logger  zerolog.Logger
	// FrameInterval paces the loop. Zero reads as fast as the source allows.
	FrameInterval time.Duration
}

// Run processes frames until the source is exhausted or ctx is cancelled.
//
// Returns:
//   - nil when the source reports io.EOF.
//   - ctx.Err() when the context is cancelled.
//   - A wrapped read error for any other source failure.
func (c *Controller) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.Source.Read(&frame)
		switch {
		case errors.Is(err, io.EOF):
			c.Logger.Info().Msg("end of stream")
			return nil
		case errors.Is(err, ErrBadFrame):
			c.Logger.Warn().Err(err).Msg("skipping undecodable frame")
			continue
		case err != nil:
			return errors.Wrap(err, "failed to read frame")
		}
		if frame.Empty() {
			continue
		}

		res := c.process(frame)
		c.dispatch(ctx, res)

		if c.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.FrameInterval):
			}
		}
	}
}

func (c *Controller) process(frame gocv.Mat) motion.Result {
	if c.Monitor == nil {
		return c.Detector.Process(frame)
	}

	stopTiming := c.Monitor.StartOperation("process")
	res := c.Detector.Process(frame)
	stopTiming()
	c.Monitor.Observe(res)
	return res
}

// dispatch turns the regions in motion into notification events. Notifier
// failures are logged and never stop the loop.
func (c *Controller) dispatch(ctx context.Context, res motion.Result) {
	if !res.MotionDetected {
		return
	}

	for _, region := range res.Regions {
		if !region.MotionDetected {
			continue
		}
		event := notify.NewEvent(region.ID, region.Rect, region.Area, res.Timestamp)

		if region.Started && c.Events != nil {
			if err := c.Events.Notify(ctx, event); err != nil {
				c.Logger.Error().Err(err).Int("roi_id", region.ID).Msg("failed to record motion event")
			}
		}
		if c.Alerts != nil {
			if err := c.Alerts.Notify(ctx, event); err != nil {
				c.Logger.Error().Err(err).Int("roi_id", region.ID).Msg("failed to send motion alert")
			}
		}
	}
}
