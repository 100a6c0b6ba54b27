package freqshow

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/chzchzchz/freqshow/radio"
)

// black, green, yellow, white
var colorScale = []color.NRGBA{
	{0, 0, 0, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{255, 255, 255, 255},
}

func interpolate(t float64, a, b uint8) uint8 { return uint8(float64(a)*(1-t) + float64(b)*t) }

// BinColor maps a normalized intensity in [0, 1] onto the color scale.
func BinColor(v float64) color.NRGBA {
	if v <= 0 {
		return colorScale[0]
	}
	idx := float64(len(colorScale)-1) * v
	if int(idx)+1 >= len(colorScale) {
		return colorScale[len(colorScale)-1]
	}
	t := idx - float64(int(idx))
	prev, next := colorScale[int(idx)], colorScale[int(idx)+1]
	return color.NRGBA{
		interpolate(t, prev.R, next.R),
		interpolate(t, prev.G, next.G),
		interpolate(t, prev.B, next.B),
		255,
	}
}

// Waterfall is a scrolling spectrogram image, newest frame on the bottom row.
type Waterfall struct {
	img  *image.NRGBA
	rows int
}

func NewWaterfall(width, height int) *Waterfall {
	r := image.Rect(0, 0, width, height)
	img := image.NewNRGBA(r)
	draw.Draw(img, r, &image.Uniform{colorScale[0]}, image.Point{}, draw.Src)
	return &Waterfall{img: img}
}

// Push scrolls the image up a row and draws frame, scaled by s, at the
// bottom. Bins beyond the image width are dropped.
func (w *Waterfall) Push(frame []float64, s Scaling) {
	b := w.img.Bounds()
	stride := w.img.Stride
	copy(w.img.Pix, w.img.Pix[stride:])
	y := b.Max.Y - 1
	for x := 0; x < b.Dx(); x++ {
		c := colorScale[0]
		if x < len(frame) {
			v := s.Normalize(frame[x])
			c = BinColor(v * v)
		}
		w.img.SetNRGBA(x, y, c)
	}
	w.rows++
}

// Rows is how many frames have been pushed.
func (w *Waterfall) Rows() int { return w.rows }

func (w *Waterfall) Image() *image.NRGBA { return w.img }

func humanHz(mhz float64) string {
	v, suffix := humanize.ComputeSI(mhz * 1e6)
	return fmt.Sprintf("%0.3f %sHz", v, suffix)
}

const labelSize = 12

// Annotate writes the band edges and center along the top of the image.
func (w *Waterfall) Annotate(band radio.FreqBand) error {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(labelSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.White)
	ctx.SetClip(w.img.Bounds())
	ctx.SetDst(w.img)

	width := w.img.Bounds().Dx()
	labels := []struct {
		x   int
		mhz float64
	}{
		{2, band.BeginMHz()},
		{width / 2, band.Center},
		{width - 110, band.EndMHz()},
	}
	for _, l := range labels {
		for y := 0; y < labelSize+6; y++ {
			w.img.Set(l.x, y, image.White)
		}
		pt := freetype.Pt(l.x+3, labelSize+2)
		if _, err := ctx.DrawString(humanHz(l.mhz), pt); err != nil {
			return err
		}
	}
	return nil
}

func (w *Waterfall) WriteJPEG(out io.Writer) error {
	return jpeg.Encode(out, w.img, nil)
}

// Clone copies the waterfall so it can be annotated without marking the
// live image.
func (w *Waterfall) Clone() *Waterfall {
	img := image.NewNRGBA(w.img.Bounds())
	copy(img.Pix, w.img.Pix)
	return &Waterfall{img: img, rows: w.rows}
}
