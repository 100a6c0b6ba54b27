package main

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/chzchzchz/freqshow/freqshow"
)

// fftTexture keeps one streaming texture per waterfall row.
type fftTexture struct {
	r       *sdl.Renderer
	rows    []*sdl.Texture
	rowIdx  int // wraps around
	w       int
	row8888 []byte
	rowRect *sdl.Rect
}

func newFFTTexture(r *sdl.Renderer, w, h int) (*fftTexture, error) {
	ft := &fftTexture{
		r:       r,
		rows:    make([]*sdl.Texture, h),
		w:       w,
		row8888: make([]byte, w*4),
		rowRect: &sdl.Rect{X: 0, Y: 0, W: int32(w), H: 1},
	}
	for i := 0; i < w; i++ {
		ft.row8888[4*i+3] = 0xff
	}
	for i := range ft.rows {
		var err error
		ft.rows[i], err = r.CreateTexture(
			sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_STREAMING, int32(w), 1)
		if err != nil {
			ft.Destroy()
			return nil, err
		}
		if err = ft.rows[i].Update(ft.rowRect, ft.row8888, 4); err != nil {
			ft.Destroy()
			return nil, err
		}
	}
	return ft, nil
}

func (ft *fftTexture) Destroy() {
	for _, t := range ft.rows {
		if t != nil {
			t.Destroy()
		}
	}
}

// blit draws the oldest row at the top.
func (ft *fftTexture) blit() error {
	dstRect := &sdl.Rect{X: 0 /* Y set in loops */, W: int32(ft.w), H: 1}
	for i := ft.rowIdx; i < len(ft.rows); i++ {
		if err := ft.r.Copy(ft.rows[i], ft.rowRect, dstRect); err != nil {
			return err
		}
		dstRect.Y++
	}
	for i := 0; i < ft.rowIdx; i++ {
		if err := ft.r.Copy(ft.rows[i], ft.rowRect, dstRect); err != nil {
			return err
		}
		dstRect.Y++
	}
	return nil
}

func (ft *fftTexture) add(row []float64, s freqshow.Scaling) error {
	for i := 0; i < ft.w && i < len(row); i++ {
		v := s.Normalize(row[i])
		c := freqshow.BinColor(v * v)
		ft.row8888[4*i] = c.B
		ft.row8888[4*i+1] = c.G
		ft.row8888[4*i+2] = c.R
	}
	if err := ft.rows[ft.rowIdx].Update(ft.rowRect, ft.row8888, 4); err != nil {
		return err
	}
	ft.rowIdx++
	if ft.rowIdx >= len(ft.rows) {
		ft.rowIdx = 0
	}
	return nil
}
