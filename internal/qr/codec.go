// Package qr wraps badge generation and recognition around external QR
// libraries. Generation uses the highest error-correction level so badges
// survive camera capture at classroom lighting and distance.
package qr

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	qrgen "github.com/skip2/go-qrcode"
)

// DefaultSize is the badge edge length in pixels.
const DefaultSize = 280

// ErrNotFound means the image held no decodable QR code. Distinct from a
// malformed payload and from an unreadable image.
var ErrNotFound = errors.New("no QR code found")

// Encode renders the payload as a QR image.
func Encode(p Payload, size int) (image.Image, error) {
	if size <= 0 {
		size = DefaultSize
	}
	text, err := p.Encode()
	if err != nil {
		return nil, err
	}
	code, err := qrgen.New(text, qrgen.Highest)
	if err != nil {
		return nil, fmt.Errorf("encode badge: %w", err)
	}
	return code.Image(size), nil
}

// WritePNG renders the payload straight to a PNG badge file.
func WritePNG(path string, p Payload, size int) error {
	if size <= 0 {
		size = DefaultSize
	}
	text, err := p.Encode()
	if err != nil {
		return err
	}
	if err := qrgen.WriteFile(text, qrgen.Highest, size, path); err != nil {
		return fmt.Errorf("write badge %s: %w", path, err)
	}
	return nil
}

// DecodeImage returns the payload strings found in a frame. A frame without
// a recognizable code yields ErrNotFound.
func DecodeImage(img image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("prepare frame: %w", err)
	}
	result, err := zxqrcode.NewQRCodeReader().DecodeWithoutHints(bmp)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return []string{result.GetText()}, nil
}

// DecodeFile decodes a still image chosen by the operator. An unreadable
// file is reported as its own failure, not as "no QR found".
func DecodeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return DecodeImage(img)
}
