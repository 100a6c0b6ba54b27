package freqshow

// Report is an error that can be shown to a user as a short summary line
// and a longer detail line.
type Report interface {
	error
	Summary() string
	Detail() string
}

// ValidationError rejects a value before the tuner is touched.
type ValidationError struct {
	Msg  string
	Help string
}

func (e *ValidationError) Error() string   { return e.Msg + " " + e.Help }
func (e *ValidationError) Summary() string { return e.Msg }
func (e *ValidationError) Detail() string  { return e.Help }

// HardwareError is a failed tuner operation. The tuner has already been
// reinitialized by the time the caller sees it.
type HardwareError struct {
	Action string
	Err    error
}

func (e *HardwareError) Error() string   { return "can't " + e.Action + ": " + e.Err.Error() }
func (e *HardwareError) Summary() string { return "Can't " + e.Action }
func (e *HardwareError) Detail() string  { return e.Err.Error() }
func (e *HardwareError) Unwrap() error   { return e.Err }

var (
	_ Report = &ValidationError{}
	_ Report = &HardwareError{}
)

func errSampleRate() *ValidationError {
	return &ValidationError{
		Msg:  "Specified sample rate out of range!",
		Help: "Valid sample rates are 0.226 - 0.3 MHz and 0.901 - 3.2 MHz.",
	}
}
