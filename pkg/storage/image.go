package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ErrUnsupportedImage is returned for payloads that are not decodable images.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ImageOptions bounds the stored rendition and its thumbnail.
type ImageOptions struct {
	MaxWidth      int
	MaxHeight     int
	ThumbnailSize int
	Quality       float32
}

// ProcessedImage holds the WebP encodings of an upload.
type ProcessedImage struct {
	Original    []byte
	Thumbnail   []byte
	Width       int
	Height      int
	ContentType string
}

// SniffContentType detects the MIME type from the first bytes of data.
func SniffContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)
	if ct == "application/octet-stream" && isWebP(data) {
		return "image/webp"
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// ProcessImage decodes data, fits it within the configured bounds and encodes
// it and a square thumbnail as WebP.
func ProcessImage(data []byte, opts ImageOptions) (*ProcessedImage, error) {
	src, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	if opts.Quality <= 0 {
		opts.Quality = 80
	}

	fitted := src
	bounds := src.Bounds()
	if (opts.MaxWidth > 0 && bounds.Dx() > opts.MaxWidth) || (opts.MaxHeight > 0 && bounds.Dy() > opts.MaxHeight) {
		maxW, maxH := opts.MaxWidth, opts.MaxHeight
		if maxW <= 0 {
			maxW = bounds.Dx()
		}
		if maxH <= 0 {
			maxH = bounds.Dy()
		}
		fitted = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}

	original, err := encodeWebP(fitted, opts.Quality)
	if err != nil {
		return nil, err
	}
	out := &ProcessedImage{
		Original:    original,
		Width:       fitted.Bounds().Dx(),
		Height:      fitted.Bounds().Dy(),
		ContentType: "image/webp",
	}

	if opts.ThumbnailSize > 0 {
		thumb := imaging.Thumbnail(fitted, opts.ThumbnailSize, opts.ThumbnailSize, imaging.CatmullRom)
		out.Thumbnail, err = encodeWebP(thumb, opts.Quality)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
