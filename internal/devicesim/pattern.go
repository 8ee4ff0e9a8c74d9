package devicesim

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// TestPattern renders a grayscale gradient with a bright square whose
// position depends on seed, so consecutive frames differ slightly.
func TestPattern(width, height, seed int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", width, height)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// #nosec G115 -- value is reduced modulo 256.
			img.SetGray(x, y, color.Gray{Y: uint8((x*255/width + y*64/height) % 256)})
		}
	}
	side := max(width/6, 2)
	ox := (width/3 + seed) % max(width-side, 1)
	oy := (height/3 + seed/2) % max(height-side, 1)
	for y := oy; y < oy+side && y < height; y++ {
		for x := ox; x < ox+side && x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode pattern: %w", err)
	}

	return buf.Bytes(), nil
}
