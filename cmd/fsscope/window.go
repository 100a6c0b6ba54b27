package main

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/store"
)

type fftWindow struct {
	win *sdl.Window
	r   *sdl.Renderer
	ft  *fftTexture
	w   int
	h   int

	m     *freqshow.Model
	wf    *freqshow.Waterfall
	files *store.FileStore

	pause        bool
	lines        []int32
	silentCenter bool
}

func newFFTWindow(m *freqshow.Model, files *store.FileStore) (fw *fftWindow, err error) {
	w, h := m.Width(), m.Height()
	winFlags := uint32(sdl.WINDOW_SHOWN)
	if resizable {
		winFlags |= sdl.WINDOW_RESIZABLE | sdl.WINDOW_OPENGL | sdl.WINDOW_UTILITY
	}
	if popup {
		winFlags |= sdl.WINDOW_UTILITY
	}
	win, e := sdl.CreateWindow(
		"fsscope",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(w),
		int32(h),
		winFlags)
	if e != nil {
		return nil, e
	}
	defer func() {
		if err != nil {
			win.Destroy()
		}
	}()

	// Disable letterboxing.
	sdl.SetHint(sdl.HINT_RENDER_LOGICAL_SIZE_MODE, "1")

	r, e := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_TARGETTEXTURE)
	if e != nil {
		return nil, e
	}
	defer func() {
		if err != nil {
			r.Destroy()
		}
	}()

	info, err := r.GetInfo()
	if err != nil {
		return nil, err
	}
	if (info.Flags & sdl.RENDERER_ACCELERATED) == 0 {
		glog.Warning("no hw acceleration")
	}
	if err := r.SetLogicalSize(int32(w), int32(h)); err != nil {
		return nil, err
	}
	if err := r.SetIntegerScale(false); err != nil {
		return nil, err
	}
	ft, err := newFFTTexture(r, w, h)
	if err != nil {
		return nil, err
	}
	fw = &fftWindow{
		win:   win,
		r:     r,
		ft:    ft,
		w:     w,
		h:     h,
		m:     m,
		wf:    freqshow.NewWaterfall(w, h),
		files: files,
	}
	fw.retitle()
	return fw, nil
}

func (fw *fftWindow) Close() {
	fw.ft.Destroy()
	fw.r.Destroy()
	fw.win.Destroy()
}

func (fw *fftWindow) retitle() {
	band := fw.m.Band()
	fw.win.SetTitle(fmt.Sprintf("fsscope @ [%0.5g,%0.5g]MHz gain %s min %s max %s",
		band.BeginMHz(), band.EndMHz(), fw.m.GainString(), fw.m.MinString(), fw.m.MaxString()))
}

func (fw *fftWindow) redraw() error {
	if err := fw.ft.blit(); err != nil {
		return err
	}

	// Draw selection.
	fw.r.SetDrawColor(0xff, 0xd3, 0, 0xff)
	for _, x := range fw.lines {
		fw.r.DrawLine(x, 0, x, int32(fw.h))
	}

	if err := fw.r.Flush(); err != nil {
		return err
	}
	fw.r.Present()
	return nil
}

func (fw *fftWindow) Run() error {
	fpsDur := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(fpsDur)
	defer ticker.Stop()

	for fw.processEvents() {
		<-ticker.C
		if fw.pause {
			continue
		}
		row, err := fw.m.Acquire()
		if err != nil {
			glog.Warningf("%v; tuner reset to defaults", err)
			fw.retitle()
			continue
		}
		s := fw.m.Scaling()
		fw.wf.Push(row, s)
		if err := fw.ft.add(row, s); err != nil {
			return err
		}
		if err := fw.redraw(); err != nil {
			return err
		}
	}
	return nil
}

func (fw *fftWindow) x2mhz(x int32) float64 {
	return fw.m.Band().ColumnMHz(int(x), fw.w)
}

// step retunes by a fraction of the displayed span.
func (fw *fftWindow) step(frac float64) {
	fw.apply(fw.m.SetNominalCenterFreq(fw.m.NominalCenterFreq() + frac*fw.m.SampleRate()))
}

func (fw *fftWindow) gainStep(db float64) {
	cur, ok := fw.m.Gain().DB()
	if !ok {
		cur = 0
	}
	fw.apply(fw.m.SetGain(freqshow.ManualGain(cur + db)))
}

func (fw *fftWindow) apply(err error) {
	if err != nil {
		glog.Warning(err)
	}
	fw.retitle()
}

func (fw *fftWindow) save() {
	if fw.files == nil {
		return
	}
	band := fw.m.Band()
	f, err := fw.files.CreateSpectrogram(band)
	if err != nil {
		glog.Warning(err)
		return
	}
	defer f.Close()
	wf := fw.wf.Clone()
	if err := wf.Annotate(band); err != nil {
		glog.Warning(err)
		return
	}
	if err := wf.WriteJPEG(f); err != nil {
		glog.Warning(err)
		return
	}
	glog.Infof("saved %s", f.Name())
}

func (fw *fftWindow) handleEvent(event sdl.Event) bool {
	switch ev := event.(type) {
	case *sdl.QuitEvent:
		return false
	case *sdl.MouseButtonEvent:
		if ev.Type != sdl.MOUSEBUTTONDOWN {
			break
		}
		if ev.Button == sdl.BUTTON_LEFT {
			if len(fw.lines) > 1 {
				fw.lines = nil
			}
			fw.lines = append(fw.lines, ev.X)
			if len(fw.lines) == 2 {
				a, b := fw.x2mhz(fw.lines[0]), fw.x2mhz(fw.lines[1])
				glog.Infof("selection: %0.7g-%0.7gMHz (%0.4gkHz)", a, b, (b-a)*1e3)
			}
		} else if ev.Button == sdl.BUTTON_RIGHT {
			fw.lines = nil
		} else if ev.Button == sdl.BUTTON_MIDDLE {
			fw.apply(fw.m.SetNominalCenterFreq(fw.x2mhz(ev.X)))
		}
		if fw.pause {
			fw.redraw()
		}
	case *sdl.MouseMotionEvent:
		if !fw.silentCenter {
			band := fw.m.Band()
			glog.Infof("center: %0.7gMHz of [%g,%g]", fw.x2mhz(ev.X), band.BeginMHz(), band.EndMHz())
		}
	case *sdl.WindowEvent:
		if fw.pause {
			fw.redraw()
		}
	case *sdl.KeyboardEvent:
		if ev.Type == sdl.KEYDOWN {
			switch ev.Keysym.Sym {
			case sdl.K_SPACE:
				fw.pause = !fw.pause
			case sdl.K_LEFT:
				fw.step(-0.25)
			case sdl.K_RIGHT:
				fw.step(0.25)
			case sdl.K_UP:
				fw.gainStep(1)
			case sdl.K_DOWN:
				fw.gainStep(-1)
			case sdl.K_a:
				fw.apply(fw.m.SetGain(freqshow.AutoGain))
			case sdl.K_o:
				fw.apply(fw.m.SetOffsetted(!fw.m.IsOffsetted()))
			case sdl.K_c:
				fw.m.SetMinIntensity(freqshow.AutoBound)
				fw.m.SetMaxIntensity(freqshow.AutoBound)
				fw.retitle()
			case sdl.K_m:
				fw.silentCenter = !fw.silentCenter
			case sdl.K_r:
				fw.win.SetSize(int32(fw.w), int32(fw.h))
			}
		} else if ev.Type == sdl.KEYUP {
			switch ev.Keysym.Sym {
			case sdl.K_ESCAPE:
				return false
			case sdl.K_s:
				fw.save()
			}
		}
	}
	return true
}

func (fw *fftWindow) processEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if !fw.handleEvent(event) {
			return false
		}
	}
	return true
}
