package qr

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	imageSize  = 256
	dataPrefix = "data:image/png;base64,"
)

// Encoder turns an opaque payload into an image data URL. It carries no
// state; the interface exists so services can swap in a stub under test.
type Encoder interface {
	Encode(payload string) (string, error)
}

// PNGEncoder renders payloads as medium-recovery PNG QR codes.
type PNGEncoder struct{}

// NewPNGEncoder returns the default encoder.
func NewPNGEncoder() PNGEncoder {
	return PNGEncoder{}
}

// Encode renders the payload and returns a base64 PNG data URL.
func (PNGEncoder) Encode(payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", fmt.Errorf("qr payload is required")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encoding qr payload: %w", err)
	}
	return dataPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// IsDataURL reports whether the value carries the encoder's data URL prefix.
func IsDataURL(value string) bool {
	return strings.HasPrefix(value, dataPrefix)
}
