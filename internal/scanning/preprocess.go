package scanning

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

const (
	// minOCRWidth is the width small photos are upscaled to before thresholding
	minOCRWidth = 1000
	// binaryThreshold and binaryMax follow a classic fixed binary threshold
	binaryThreshold = 120
	binaryMax       = 240
)

// gaussian3x3 is a 3x3 Gaussian kernel, normalized by 16
var gaussian3x3 = [3][3]int{
	{1, 2, 1},
	{2, 4, 2},
	{1, 2, 1},
}

// Preprocess converts an image to grayscale, upscales narrow images, applies
// a 3x3 Gaussian blur and a fixed binary threshold.
func Preprocess(src image.Image) *image.Gray {
	return threshold(blur(toGray(src)))
}

// toGray converts to grayscale, upscaling with Catmull-Rom when narrower
// than minOCRWidth
func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > 0 && w < minOCRWidth {
		h = h * minOCRWidth / w
		w = minOCRWidth
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func blur(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px := clamp(x+kx, b.Min.X, b.Max.X-1)
					py := clamp(y+ky, b.Min.Y, b.Max.Y-1)
					sum += int(src.GrayAt(px, py).Y) * gaussian3x3[ky+1][kx+1]
				}
			}
			dst.Pix[dst.PixOffset(x, y)] = uint8(sum / 16)
		}
	}
	return dst
}

func threshold(img *image.Gray) *image.Gray {
	for i, v := range img.Pix {
		if v > binaryThreshold {
			img.Pix[i] = binaryMax
		} else {
			img.Pix[i] = 0
		}
	}
	return img
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
