package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps width*height of an upload before any pixel buffer
// is allocated. Matches PIL's MAX_IMAGE_PIXELS.
const DefaultMaxPixels int64 = 178_956_970

// Image is an uploaded photo that decoded successfully.
type Image struct {
	Data     []byte // Original bytes, forwarded as-is to the vision model
	MIMEType string // Sniffed content type (e.g. image/jpeg)
	Format   string // Decoder name reported by image.Decode
	Width    int
	Height   int
}

// DecodeError is returned when an upload is not a decodable image.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot identify image file: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot identify image file: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode sniffs and fully decodes data. Anything that is not a supported
// image (jpeg, png, gif, webp), or that declares more than maxPixels pixels,
// results in a *DecodeError. A non-positive maxPixels uses DefaultMaxPixels.
func Decode(data []byte, maxPixels int64) (*Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported content type %s", mime.String())}
	}

	// Header only, so the dimensions are known before the decoder allocates
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "decode failed", Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, &DecodeError{Reason: fmt.Sprintf("image size %dx%d exceeds limit of %d pixels", cfg.Width, cfg.Height, maxPixels)}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "decode failed", Err: err}
	}

	bounds := img.Bounds()
	return &Image{
		Data:     data,
		MIMEType: mime.String(),
		Format:   format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
