package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // register decoders for dimension sniffing
)

// maxEmbedWidth is the widest image embedded as-is; anything wider is
// downscaled to keep artifacts small and pages readable.
const maxEmbedWidth = 600

// optimize records the image's dimensions and, when it is an oversized PNG
// or JPEG, re-encodes a downscaled copy. Any decoding problem leaves the
// original bytes untouched: optimization is best-effort and never fails the
// job.
func optimize(job *Job, data []byte) {
	job.Data = data

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return
	}
	job.Width, job.Height = cfg.Width, cfg.Height

	if cfg.Width <= maxEmbedWidth {
		return
	}
	if format != "png" && format != "jpeg" {
		return
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}
	scaled := downscale(src, maxEmbedWidth)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, scaled)
	}
	if err != nil {
		return
	}

	job.Data = buf.Bytes()
	job.Width = scaled.Bounds().Dx()
	job.Height = scaled.Bounds().Dy()
}

// downscale resizes src to the given width preserving aspect ratio, using
// nearest-neighbor sampling. Quality is secondary here; bounding artifact
// size is the point.
func downscale(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := b.Min.Y + y*b.Dy()/height
		for x := 0; x < width; x++ {
			sx := b.Min.X + x*b.Dx()/width
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
