package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

// SquareSize is the canvas edge used for generation requests.
const SquareSize = 1024

// Fit records where a source image landed inside a padded square.
type Fit struct {
	Size    int
	Content image.Rectangle
}

// PadSquare scales img to fit a size x size canvas, centred on black.
func PadSquare(img image.Image, size int) (*image.RGBA, Fit) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	b := img.Bounds()
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	x := (size - w) / 2
	y := (size - h) / 2
	content := image.Rect(x, y, x+w, y+h)

	draw.CatmullRom.Scale(dst, content, img, b, draw.Over, nil)
	return dst, Fit{Size: size, Content: content}
}

// PointFor maps a normalized position on the original image into padded
// square coordinates.
func (f Fit) PointFor(pos geometry.NormalizedPosition) image.Point {
	return image.Point{
		X: f.Content.Min.X + int(math.Round(pos.XPercent/100*float64(f.Content.Dx()))),
		Y: f.Content.Min.Y + int(math.Round(pos.YPercent/100*float64(f.Content.Dy()))),
	}
}

// CropToAspect returns the largest centred region of img with the given
// width/height ratio.
func CropToAspect(img image.Image, aspect float64) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if aspect > 0 {
		if float64(w)/float64(h) > aspect {
			w = max(1, int(math.Round(float64(h)*aspect)))
		} else {
			h = max(1, int(math.Round(float64(w)/aspect)))
		}
	}
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

// Resize scales img to exactly w x h.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var (
	markerFill    = color.RGBA{R: 255, A: 255}
	markerOutline = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// MarkerRadius is the marker radius for a square canvas of the given size.
func MarkerRadius(size int) int {
	return max(5, int(math.Round(float64(size)*0.015)))
}

// DrawMarker paints a red dot with a white outline centred on p.
func DrawMarker(dst draw.Image, p image.Point, radius int) {
	outline := max(1, int(math.Round(float64(radius)*0.2)))
	fill := func(r int, c color.Color) {
		rect := image.Rect(p.X-r, p.Y-r, p.X+r+1, p.Y+r+1)
		draw.DrawMask(dst, rect, image.NewUniform(c), image.Point{}, &disc{center: p, r: r}, rect.Min, draw.Over)
	}
	fill(radius+outline, markerOutline)
	fill(radius, markerFill)
}

// disc is an alpha mask for a filled circle.
type disc struct {
	center image.Point
	r      int
}

func (d *disc) ColorModel() color.Model { return color.Alpha16Model }

func (d *disc) Bounds() image.Rectangle {
	return image.Rect(d.center.X-d.r, d.center.Y-d.r, d.center.X+d.r+1, d.center.Y+d.r+1)
}

func (d *disc) At(x, y int) color.Color {
	dx, dy := x-d.center.X, y-d.center.Y
	if dx*dx+dy*dy <= d.r*d.r {
		return color.Alpha16{A: 0xffff}
	}
	return color.Alpha16{}
}

// Clone copies img into a new RGBA image.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
