package controller

import (
	"io"

	"github.com/nvr-ai/roi-motion/images"
	"github.com/nvr-ai/roi-motion/util"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrBadFrame is returned by a FrameSource when one frame cannot be decoded
// but the stream can continue.
var ErrBadFrame = errors.New("bad frame")

// FrameSource yields decoded frames. Read returns io.EOF once the stream is
// exhausted.
type FrameSource interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// VideoSource reads frames from a capture device or a video file.
type VideoSource struct {
	capture *gocv.VideoCapture
	name    string
}

// OpenVideoSource opens a capture device (int id) or a video file path.
//
// @example
// src, err := controller.OpenVideoSource(0)
// if err != nil { ... }
// defer src.Close()
func OpenVideoSource(device interface{}) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		if capture != nil {
			capture.Close()
		}
		return nil, errors.Wrapf(err, "failed to open video source %v", device)
	}
	return &VideoSource{capture: capture, name: toName(device)}, nil
}

func toName(device interface{}) string {
	switch v := device.(type) {
	case string:
		return v
	default:
		return "device"
	}
}

// Read grabs the next frame. A failed grab means the file ended or the
// device was closed, and is reported as io.EOF.
func (s *VideoSource) Read(dst *gocv.Mat) error {
	if ok := s.capture.Read(dst); !ok {
		return io.EOF
	}
	return nil
}

// Name returns the file path, or "device" for cameras.
func (s *VideoSource) Name() string {
	return s.name
}

// Close releases the capture.
func (s *VideoSource) Close() error {
	return s.capture.Close()
}

// DirectorySource replays still frames from a directory in frame order.
type DirectorySource struct {
	frames []util.ImageFile
	width  uint
	next   int
}

// NewDirectorySource loads every frame image in dir. Frames wider than
// width are scaled down to it; zero keeps the original size.
func NewDirectorySource(dir string, width uint) (*DirectorySource, error) {
	frames, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no frame images in %s", dir)
	}
	return &DirectorySource{frames: frames, width: width}, nil
}

// Len returns the number of frames in the directory.
func (s *DirectorySource) Len() int {
	return len(s.frames)
}

// Read decodes the next frame into dst. A frame that fails to decode yields
// ErrBadFrame and is skipped on the next call.
func (s *DirectorySource) Read(dst *gocv.Mat) error {
	if s.next >= len(s.frames) {
		return io.EOF
	}
	f := s.frames[s.next]
	s.next++

	mat, err := images.DecodeFrame(f.Data, f.Format, s.width)
	if err != nil {
		mat.Close()
		return errors.Wrapf(ErrBadFrame, "%s: %v", f.Path, err)
	}
	defer mat.Close()

	return mat.CopyTo(dst)
}

// Close drops the loaded frames.
func (s *DirectorySource) Close() error {
	s.frames = nil
	return nil
}
