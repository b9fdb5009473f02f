package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h2non/bimg"
)

type ImageResult struct {
	Data        []byte
	Width       int
	Height      int
	Format      string
	ContentType string
}

// ImageProcessor shrinks and recompresses uploaded images.
type ImageProcessor interface {
	Fit(data []byte, maxWidth, maxHeight, quality int) (*ImageResult, error)
}

// BimgProcessor is the libvips backed ImageProcessor.
type BimgProcessor struct{}

func NewBimgProcessor() *BimgProcessor {
	return &BimgProcessor{}
}

func (BimgProcessor) Fit(data []byte, maxWidth, maxHeight, quality int) (*ImageResult, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, invalidContent("unreadable image: %v", err)
	}

	format := img.Type()
	outType, outFormat := bimg.ImageType(bimg.JPEG), format
	switch format {
	case "png":
		outType = bimg.PNG
	case "webp":
		outType = bimg.WEBP
	case "jpeg":
		outType = bimg.JPEG
	case "gif":
		// libvips cannot always write gif; keep the first frame as png.
		outType, outFormat = bimg.PNG, "png"
	default:
		return nil, invalidContent("unsupported image format %q", format)
	}

	width, height := fitWithin(size.Width, size.Height, maxWidth, maxHeight)
	opts := bimg.Options{
		Quality: quality,
		Type:    outType,
	}
	if width != size.Width || height != size.Height {
		opts.Width = width
		opts.Height = height
		opts.Force = true
	}

	out, err := img.Process(opts)
	if err != nil {
		return nil, fmt.Errorf("image processing failed: %w", err)
	}

	return &ImageResult{
		Data:        out,
		Width:       width,
		Height:      height,
		Format:      outFormat,
		ContentType: "image/" + outFormat,
	}, nil
}

// fitWithin scales w x h down to fit the bounds while keeping the aspect
// ratio. Images are never enlarged; a non-positive bound is ignored.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return w, h
	}
	nw, nh := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

var imageExtensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
	"image/gif":  {".gif"},
}

// RenameForContentType swaps the extension of name when a transcode changed
// the image format, so downloads are not served under a stale extension.
func RenameForContentType(name, contentType string) string {
	exts, ok := imageExtensions[contentType]
	if !ok {
		return name
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return name
		}
	}
	return strings.TrimSuffix(name, ext) + exts[0]
}
