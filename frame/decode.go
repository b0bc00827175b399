package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

var (
	// ErrUnsupportedEncoding is returned for an unknown frame encoding
	ErrUnsupportedEncoding = errors.New("unsupported frame encoding")
	// ErrSizeMismatch is returned when the frame data does not match its
	// stated dimensions
	ErrSizeMismatch = errors.New("frame data size mismatch")
	// ErrEmptyFrame is returned when a frame has no pixels
	ErrEmptyFrame = errors.New("empty frame")
)

// Frame encodings
const (
	EncodingBGR8  = "bgr8"
	EncodingRGB8  = "rgb8"
	EncodingBGRA8 = "bgra8"
	EncodingRGBA8 = "rgba8"
	EncodingMono8 = "mono8"
	EncodingJPEG  = "jpeg"
	EncodingPNG   = "png"
	EncodingBMP   = "bmp"
	EncodingTIFF  = "tiff"
	EncodingWebP  = "webp"
)

// Raw is an inbound frame as received from a transport
type Raw struct {
	// Width and Height in pixels, ignored for compressed encodings
	Width  int
	Height int
	// Encoding is one of the Encoding constants
	Encoding string
	Data     []byte
}

// rawFormat describes an uncompressed pixel layout
type rawFormat struct {
	channels int
	matType  gocv.MatType
	// convert is the color conversion to BGR, -1 if none needed
	convert gocv.ColorConversionCode
}

var rawFormats = map[string]rawFormat{
	EncodingBGR8:  {3, gocv.MatTypeCV8UC3, -1},
	EncodingRGB8:  {3, gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR},
	EncodingBGRA8: {4, gocv.MatTypeCV8UC4, gocv.ColorBGRAToBGR},
	EncodingRGBA8: {4, gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGR},
	EncodingMono8: {1, gocv.MatTypeCV8UC1, gocv.ColorGrayToBGR},
}

// Decode converts the raw frame into a BGR8 Mat.  The caller must Close the
// returned Mat.
func Decode(raw Raw) (gocv.Mat, error) {

	if len(raw.Data) == 0 {
		return gocv.NewMat(), ErrEmptyFrame
	}

	enc := strings.ToLower(raw.Encoding)

	if format, ok := rawFormats[enc]; ok {
		return decodeRaw(raw, format)
	}

	switch enc {
	case EncodingJPEG, "jpg", EncodingPNG:
		return decodeOpenCV(raw.Data)

	case EncodingBMP:
		return decodeImage(raw.Data, bmp.Decode)

	case EncodingTIFF:
		return decodeImage(raw.Data, tiff.Decode)

	case EncodingWebP:
		return decodeImage(raw.Data, webp.Decode)
	}

	return gocv.NewMat(), fmt.Errorf("%w: %q", ErrUnsupportedEncoding, raw.Encoding)
}

// decodeRaw wraps the uncompressed pixel data in a Mat and converts it to BGR
func decodeRaw(raw Raw, format rawFormat) (gocv.Mat, error) {

	if raw.Width <= 0 || raw.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("%w: %dx%d", ErrEmptyFrame, raw.Width, raw.Height)
	}

	expected := raw.Width * raw.Height * format.channels

	if len(raw.Data) != expected {
		return gocv.NewMat(), fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ErrSizeMismatch, raw.Encoding, raw.Width, raw.Height, expected, len(raw.Data))
	}

	src, err := gocv.NewMatFromBytes(raw.Height, raw.Width, format.matType, raw.Data)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error creating mat: %w", err)
	}

	defer src.Close()

	// the source Mat shares the Go buffer, so always produce an owned copy
	if format.convert < 0 {
		return src.Clone(), nil
	}

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, format.convert)

	return dst, nil
}

// decodeOpenCV decodes jpeg and png data with OpenCV's codecs
func decodeOpenCV(data []byte) (gocv.Mat, error) {

	img, err := gocv.IMDecode(data, gocv.IMReadColor)

	if err != nil {
		return img, fmt.Errorf("error decoding image: %w", err)
	}

	if img.Empty() {
		return img, fmt.Errorf("%w: image could not be decoded", ErrEmptyFrame)
	}

	return img, nil
}

// decodeImage decodes formats OpenCV may be built without using the pure Go
// decoders and converts the result to a BGR Mat
func decodeImage(data []byte, decode func(r io.Reader) (image.Image, error)) (gocv.Mat, error) {

	img, err := decode(bytes.NewReader(data))

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error decoding image: %w", err)
	}

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error converting image to mat: %w", err)
	}

	defer mat.Close()

	return mat.Clone(), nil
}
