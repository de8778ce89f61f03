// Package qr reads part identifiers from photos of QR labels.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Telegram delivers photos as JPEG
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode is returned when the image holds no readable QR code.
var ErrNoCode = errors.New("no readable QR code in image")

// Decoder decodes the first QR code in an image.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewDecoder returns a decoder that trades speed for accuracy; label photos
// are often skewed or badly lit.
func NewDecoder() *Decoder {
	return &Decoder{hints: map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}}
}

// Decode reads an encoded image and returns the trimmed QR payload.
func (d *Decoder) Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return d.DecodeImage(img)
}

// DecodeBytes is Decode over an in-memory image.
func (d *Decoder) DecodeBytes(b []byte) (string, error) {
	return d.Decode(bytes.NewReader(b))
}

// DecodeImage reads an already decoded image.
func (d *Decoder) DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", ErrNoCode
	}

	text := strings.TrimSpace(res.GetText())
	if text == "" {
		return "", ErrNoCode
	}
	return text, nil
}
