package session

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// qrImageSize is the rendered PNG edge length in pixels.
const qrImageSize = 256

// RenderQRDataURL renders a pairing challenge into a PNG data URL that
// clients can drop straight into an image tag.
func RenderQRDataURL(challenge string) (string, error) {
	png, err := qrcode.Encode(challenge, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to render pairing code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
