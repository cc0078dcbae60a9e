package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is one rendered preview, ready for an <img src>.
type Image struct {
	Slot    string
	Name    string
	DataURL string
	Width   int
	Height  int
}

// scaleToHeight shrinks img so it is at most maxHeight tall, keeping the
// aspect ratio. Smaller images are returned unchanged.
func scaleToHeight(img image.Image, maxHeight int) image.Image {
	b := img.Bounds()
	if maxHeight <= 0 || b.Dy() <= maxHeight {
		return img
	}
	w := b.Dx() * maxHeight / b.Dy()
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, maxHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// encodePNG returns img as a PNG data URL.
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return dataURL("image/png", buf.Bytes()), nil
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// imagePreview decodes data and scales it to maxHeight. Formats the decoder
// does not know are passed through untouched for the browser to draw.
func imagePreview(slot, name, contentType string, data []byte, maxHeight int) Image {
	out := Image{Slot: slot, Name: name}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		out.DataURL = dataURL(contentType, data)
		return out
	}
	scaled := scaleToHeight(img, maxHeight)
	url, err := encodePNG(scaled)
	if err != nil {
		out.DataURL = dataURL(contentType, data)
		return out
	}
	out.DataURL = url
	out.Width = scaled.Bounds().Dx()
	out.Height = scaled.Bounds().Dy()
	return out
}
