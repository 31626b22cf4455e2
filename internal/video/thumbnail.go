package video

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailMaxWidth  = 640
	ThumbnailMaxHeight = 360
	thumbnailQuality   = 85
)

// NormalizeThumbnail decodes an extracted frame and re-encodes it as a JPEG
// that fits within ThumbnailMaxWidth x ThumbnailMaxHeight.
func NormalizeThumbnail(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	img = imaging.Fit(img, ThumbnailMaxWidth, ThumbnailMaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
