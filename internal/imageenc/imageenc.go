// Package imageenc turns rendered page images into inline payloads for
// vision requests.
package imageenc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jackzampolin/pagemark/internal/providers"
)

// EncodingError reports an image that could not be read or encoded.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode image %s: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// FileEncoder reads image files from disk.
type FileEncoder struct {
	// MaxDimension, when positive, downscales images whose longest side
	// exceeds it. Downscaled images are re-encoded as PNG.
	MaxDimension int
}

// NewFileEncoder creates an encoder.
func NewFileEncoder(maxDimension int) *FileEncoder {
	return &FileEncoder{MaxDimension: maxDimension}
}

// Encode reads the file at path and returns it base64 encoded with its MIME type.
func (e *FileEncoder) Encode(path string) (providers.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return providers.Image{}, &EncodingError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return providers.Image{}, &EncodingError{Path: path, Err: fmt.Errorf("empty file")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return providers.Image{}, &EncodingError{Path: path, Err: fmt.Errorf("unrecognized image format: %w", err)}
	}
	mimeType, ok := mimeTypes[format]
	if !ok {
		return providers.Image{}, &EncodingError{Path: path, Err: fmt.Errorf("unsupported image format %q", format)}
	}

	if e.MaxDimension > 0 && max(cfg.Width, cfg.Height) > e.MaxDimension {
		data, err = downscale(data, cfg.Width, cfg.Height, e.MaxDimension)
		if err != nil {
			return providers.Image{}, &EncodingError{Path: path, Err: err}
		}
		mimeType = "image/png"
	}

	return providers.Image{
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// downscale fits the image inside a limit x limit box, keeping its aspect ratio.
func downscale(data []byte, width, height, limit int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	targetW, targetH := limit, limit
	if width >= height {
		targetH = max(1, height*limit/width)
	} else {
		targetW = max(1, width*limit/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
