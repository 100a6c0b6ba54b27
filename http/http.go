package http

import (
	"context"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/chzchzchz/freqshow/dsp"
	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
	"github.com/chzchzchz/freqshow/store"
)

const indexTmplStr = `<!DOCTYPE html>
<html>
<head>
<title>freqshow {{printf "%.3f" .Band.Center}}MHz</title>
<style>
table, th, td {
  border: 1px solid black;
  text-align: right;
}
</style>
</head>
<body>
<h1>freqshow</h1>
<hr/>

<h2>Tuner status &#x1F4FB;</h2>
<ul>
<li>Center frequency: {{printf "%.3f" .Band.Center}}MHz {{if .Tuner.Offset}}(offset {{printf "%.0f" .Tuner.OffsetMHz}}MHz){{end}}</li>
<li>Span: {{printf "%.3f" .Band.BeginMHz}}--{{printf "%.3f" .Band.EndMHz}}MHz</li>
<li>Gain: {{.Tuner.Gain}}</li>
<li>Intensity: {{.Tuner.Min}} to {{.Tuner.Max}} dB</li>
</ul>
<img src="/api/waterfall.jpg" />

{{$length := len .Channels}} {{if gt $length 0}}
<h2>Known channels &#x1F4D6;</h2>
<table>
<tr><th>Name</th><th>Center MHz</th><th>Bandwidth kHz</th><th>Modulation</th></tr>
{{range $_, $c := .Channels}}
<tr>
<td>{{$c.Name}}</td>
<td>{{printf "%.4f" $c.Center}}</td>
<td>{{printf "%.2f" $c.BandwidthKHz}}</td>
<td>{{$c.Modulation}}</td>
</tr>
{{end}}
</table>
{{end}}

{{$length := len .Spectrograms}} {{if gt $length 0}}
<h2>Saved spectrograms</h2>
<table>
<tr><th>Date</th><th>Center MHz</th><th>Path</th></tr>
{{range $_, $s := .Spectrograms}}
<tr><td>{{$s.Date}}</td><td>{{printf "%.3f" $s.Band.Center}}</td><td>{{$s.Path}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

// Server exposes one Model over HTTP. Every request holds the model lock
// for its whole duration, so acquisitions and retunes never overlap.
type Server struct {
	m  *freqshow.Model
	mu sync.Mutex

	frames  *store.FrameStore
	session string
	files   *store.FileStore
	plan    *store.BandPlan

	wf     *freqshow.Waterfall
	engine *gin.Engine
}

type Option func(*Server)

// WithFrameStore records every frame served by /api/frame under session.
func WithFrameStore(fs *store.FrameStore, session string) Option {
	return func(s *Server) { s.frames, s.session = fs, session }
}

// WithFileStore enables saving waterfall images.
func WithFileStore(fs *store.FileStore) Option {
	return func(s *Server) { s.files = fs }
}

// WithBandPlan names peaks and lists channels in the current span.
func WithBandPlan(bp *store.BandPlan) Option {
	return func(s *Server) { s.plan = bp }
}

func NewServer(m *freqshow.Model, opts ...Option) *Server {
	s := &Server{m: m, wf: freqshow.NewWaterfall(m.Width(), m.Height())}
	for _, opt := range opts {
		opt(s)
	}
	r := gin.New()
	r.Use(glogger(), gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("index").Parse(indexTmplStr)))
	r.GET("/", s.handleIndex)
	api := r.Group("/api")
	api.GET("/tuner", s.handleGetTuner)
	api.PUT("/tuner/center", s.handleSetCenter)
	api.PUT("/tuner/sample-rate", s.handleSetSampleRate)
	api.PUT("/tuner/gain", s.handleSetGain)
	api.PUT("/tuner/offset", s.handleSetOffset)
	api.PUT("/intensity/min", s.handleSetIntensity((*freqshow.Model).SetMinIntensity))
	api.PUT("/intensity/max", s.handleSetIntensity((*freqshow.Model).SetMaxIntensity))
	api.GET("/frame", s.handleFrame)
	api.GET("/peaks", s.handlePeaks)
	api.GET("/waterfall.jpg", s.handleWaterfall)
	api.POST("/spectrograms", s.handleSaveSpectrogram)
	api.GET("/spectrograms", s.handleSpectrograms)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()
	glog.Infof("serving on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func glogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		glog.V(1).Infof("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// jsonFloat maps non-finite values to null.
func jsonFloat(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func jsonFloats(vs []float64) []*float64 {
	ret := make([]*float64, len(vs))
	for i, v := range vs {
		ret[i] = jsonFloat(v)
	}
	return ret
}

type errorResponse struct {
	Error   string `json:"error"`
	Summary string `json:"summary,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) fail(c *gin.Context, err error) {
	var (
		verr *freqshow.ValidationError
		herr *freqshow.HardwareError
		rep  freqshow.Report
	)
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		code = http.StatusBadRequest
	case errors.As(err, &herr):
		code = http.StatusBadGateway
	}
	resp := errorResponse{Error: err.Error()}
	if errors.As(err, &rep) {
		resp.Summary, resp.Detail = rep.Summary(), rep.Detail()
	}
	c.AbortWithStatusJSON(code, resp)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

type tunerStatus struct {
	CenterMHz     float64        `json:"center_mhz"`
	Offset        bool           `json:"offset"`
	OffsetMHz     float64        `json:"offset_mhz"`
	SampleRateMHz float64        `json:"sample_rate_mhz"`
	Gain          string         `json:"gain"`
	Min           string         `json:"min"`
	Max           string         `json:"max"`
	Scaling       scalingStatus  `json:"scaling"`
	Band          radio.FreqBand `json:"band"`
	Width         int            `json:"width"`
}

type scalingStatus struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Range *float64 `json:"range"`
}

func (s *Server) scaling() scalingStatus {
	var ss scalingStatus
	if v, ok := s.m.MinIntensity(); ok {
		ss.Min = jsonFloat(v)
	}
	if v, ok := s.m.MaxIntensity(); ok {
		ss.Max = jsonFloat(v)
	}
	if v, ok := s.m.Range(); ok {
		ss.Range = jsonFloat(v)
	}
	return ss
}

func (s *Server) status() tunerStatus {
	return tunerStatus{
		CenterMHz:     s.m.NominalCenterFreq(),
		Offset:        s.m.IsOffsetted(),
		OffsetMHz:     s.m.OffsetMHz(),
		SampleRateMHz: s.m.SampleRate(),
		Gain:          s.m.GainString(),
		Min:           s.m.MinString(),
		Max:           s.m.MaxString(),
		Scaling:       s.scaling(),
		Band:          s.m.Band(),
		Width:         s.m.Width(),
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	band := s.m.Band()
	data := struct {
		Tuner        tunerStatus
		Band         radio.FreqBand
		Channels     []store.BandRecord
		Spectrograms []store.SpectrogramFile
	}{Tuner: s.status(), Band: band}
	if s.plan != nil {
		data.Channels = s.plan.Range(band)
	}
	if s.files != nil {
		sgs, err := s.files.Spectrograms(band)
		if err != nil {
			glog.Warningf("listing spectrograms: %v", err)
		}
		data.Spectrograms = sgs
	}
	c.HTML(http.StatusOK, "index", data)
}

func (s *Server) handleGetTuner(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.status())
}

type mhzRequest struct {
	MHz *float64 `json:"mhz" binding:"required"`
}

func (s *Server) handleSetCenter(c *gin.Context) {
	var req mhzRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.SetNominalCenterFreq(*req.MHz); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handleSetSampleRate(c *gin.Context) {
	var req mhzRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.SetSampleRate(*req.MHz); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.status())
}

type valueRequest struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) handleSetGain(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := freqshow.ParseGain(req.Value)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.SetGain(g); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.status())
}

type offsetRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleSetOffset(c *gin.Context) {
	var req offsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.SetOffsetted(*req.Enabled); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handleSetIntensity(set func(*freqshow.Model, freqshow.Bound)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req valueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		b, err := freqshow.ParseBound(req.Value)
		if err != nil {
			badRequest(c, err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		set(s.m, b)
		c.JSON(http.StatusOK, s.status())
	}
}

type frameResponse struct {
	ID      int64          `json:"id,omitempty"`
	Band    radio.FreqBand `json:"band"`
	Bins    []*float64     `json:"bins"`
	Scaling scalingStatus  `json:"scaling"`
}

// acquire reads one frame and feeds it to the waterfall. Callers hold mu.
func (s *Server) acquire() ([]float64, error) {
	frame, err := s.m.Acquire()
	if err != nil {
		return nil, err
	}
	s.wf.Push(frame, s.m.Scaling())
	return frame, nil
}

func (s *Server) handleFrame(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, err := s.acquire()
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := frameResponse{Band: s.m.Band(), Bins: jsonFloats(frame), Scaling: s.scaling()}
	if s.frames != nil {
		f := &store.Frame{Session: s.session, Band: resp.Band, Gain: s.m.GainString(), Bins: frame}
		if _, err := s.frames.Record(c.Request.Context(), f); err != nil {
			glog.Warningf("error storing frame: %v", err)
		}
		resp.ID = f.ID
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, key string, def, max int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, errors.New(key + ": want 1.." + strconv.Itoa(max))
	}
	return n, nil
}

type peak struct {
	MHz     float64 `json:"mhz"`
	DB      float64 `json:"db"`
	Channel string  `json:"channel,omitempty"`
}

type signalBand struct {
	Band radio.FreqBand `json:"band"`
	DB   float64        `json:"db_above_floor"`
}

type peaksResponse struct {
	Frames     int          `json:"frames"`
	NoiseFloor *float64     `json:"noise_floor"`
	Peaks      []peak       `json:"peaks"`
	Bands      []signalBand `json:"bands"`
}

func (s *Server) handlePeaks(c *gin.Context) {
	n, err := intQuery(c, "frames", 8, 1000)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := dsp.NewPower(s.m.Width())
	for i := 0; i < n; i++ {
		frame, err := s.acquire()
		if err != nil {
			s.fail(c, err)
			return
		}
		p.Add(frame)
	}
	c.JSON(http.StatusOK, s.summarize(p))
}

func (s *Server) summarize(p *dsp.Power) peaksResponse {
	band, cols := s.m.Band(), s.m.Width()
	binMHz := band.Width / float64(cols)
	avg := p.Average()
	resp := peaksResponse{Frames: p.Frames(), NoiseFloor: jsonFloat(p.NoiseFloor())}
	for _, i := range p.Peaks() {
		pk := peak{MHz: band.ColumnMHz(i, cols) + binMHz/2, DB: avg[i]}
		if s.plan != nil {
			if rec, ok := s.plan.Lookup(pk.MHz); ok {
				pk.Channel = rec.Name
			}
		}
		resp.Peaks = append(resp.Peaks, pk)
	}
	for _, br := range p.Bands() {
		w := float64(br.Bins) * binMHz
		fb := radio.FreqBand{Center: band.ColumnMHz(br.Begin, cols) + w/2, Width: w}
		resp.Bands = append(resp.Bands, signalBand{Band: fb, DB: br.DB})
	}
	return resp
}

func (s *Server) handleWaterfall(c *gin.Context) {
	rows, err := intQuery(c, "rows", 1, s.m.Height())
	if err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < rows; i++ {
		if _, err := s.acquire(); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	if err := s.wf.WriteJPEG(c.Writer); err != nil {
		glog.Warningf("writing waterfall: %v", err)
	}
}

func (s *Server) handleSaveSpectrogram(c *gin.Context) {
	if s.files == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "no capture directory configured"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	band := s.m.Band()
	f, err := s.files.CreateSpectrogram(band)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	wf := s.wf.Clone()
	if err := wf.Annotate(band); err != nil {
		s.fail(c, err)
		return
	}
	if err := wf.WriteJPEG(f); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": f.Name(), "band": band})
}

func (s *Server) handleSpectrograms(c *gin.Context) {
	if s.files == nil {
		c.JSON(http.StatusOK, []store.SpectrogramFile{})
		return
	}
	s.mu.Lock()
	band := s.m.Band()
	s.mu.Unlock()
	sgs, err := s.files.Spectrograms(band)
	if err != nil {
		s.fail(c, err)
		return
	}
	if sgs == nil {
		sgs = []store.SpectrogramFile{}
	}
	c.JSON(http.StatusOK, sgs)
}
