// Package qrx renders otpauth:// provisioning URIs as QR code images.
package qrx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
)

// DefaultSize is the rendered image width and height in pixels.
const DefaultSize = 256

// RenderDataURI returns the QR code for uri as a data:image/png;base64 URI.
func RenderDataURI(uri string, size int) (string, error) {
	if size <= 0 {
		size = DefaultSize
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("qrx: parse provisioning uri: %w", err)
	}

	img, err := key.Image(size, size)
	if err != nil {
		return "", fmt.Errorf("qrx: render image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("qrx: encode png: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
