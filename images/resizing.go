package images

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp" // register decoder
)

// DecodeFrame decodes an encoded frame into a 3-channel BGR gocv.Mat,
// optionally down-scaling it first.
//
// Arguments:
//   - data: the encoded image bytes.
//   - format: the encoding of data.
//   - width: target width in pixels, aspect ratio preserved. Zero keeps the
//     original size; frames already narrower than width are left alone.
//
// Returns:
//   - gocv.Mat: the decoded frame. The caller owns it and must Close() it.
//   - error: if decoding or conversion fails.
func DecodeFrame(data []byte, format ImageFormat, width uint) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), errors.New("frame data is empty")
	}

	img, err := decode(data, format)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "failed to decode %s frame", format)
	}

	img = ResizeToWidth(img, width)

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "failed to convert frame to Mat")
	}
	return mat, nil
}

func decode(data []byte, format ImageFormat) (image.Image, error) {
	if format == FormatWebP {
		return webp.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// ResizeToWidth scales img down to width pixels wide, keeping its aspect
// ratio. Zero width or an image that is already narrow enough is returned as is.
func ResizeToWidth(img image.Image, width uint) image.Image {
	if width == 0 || img.Bounds().Dx() <= int(width) {
		return img
	}
	return resize.Resize(width, 0, img, resize.Bilinear)
}
