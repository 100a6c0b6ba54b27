package radio

// Tee returns a tuner that also writes every block it reads to w. With a nil
// w blocks pass straight through.
func Tee(t Tuner, w *IQWriter) *TeeTuner { return &TeeTuner{Tuner: t, w: w} }

type TeeTuner struct {
	Tuner
	w *IQWriter
}

// SetWriter redirects later blocks to w.
func (t *TeeTuner) SetWriter(w *IQWriter) { t.w = w }

func (t *TeeTuner) ReadSamples(n int) ([]complex64, error) {
	samps, err := t.Tuner.ReadSamples(n)
	if err != nil {
		return nil, err
	}
	if t.w == nil {
		return samps, nil
	}
	if err := t.w.Write64(samps); err != nil {
		return nil, err
	}
	return samps, nil
}
