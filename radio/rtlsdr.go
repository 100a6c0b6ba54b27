package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golang/glog"
	"github.com/kr/pty"
)

var minFreqHz = 24000000.0
var maxFreqHz = 1766000000.0

// rtl_tcp starts at 100MHz, 2.048MHz, auto gain.
const (
	rtlDefaultCenterHz = 100000000
	rtlDefaultRate     = 2048000
)

// RTLTCP is a Tuner backed by an rtl_tcp server. rtl_tcp is write-only, so
// the last values written are reported back by the getters.
type RTLTCP struct {
	addr *net.TCPAddr
	conn *rtlTCPConn
	iqr  *IQReader
	// stale is set after retuning; the next read reconnects so samples
	// buffered under the old tuning are discarded.
	stale bool

	center float64
	rate   uint32
	gain   float64
	manual bool

	// set when the server was launched by us
	cmd  *exec.Cmd
	fpty *os.File

	// active mirrors conn so Close can interrupt a read holding mu.
	active atomic.Pointer[rtlTCPConn]
	closed bool

	ctx context.Context
	mu  sync.Mutex
}

// DialRTLTCP connects to a running rtl_tcp at hostport.
func DialRTLTCP(ctx context.Context, hostport string) (*RTLTCP, error) {
	addr, err := net.ResolveTCPAddr("tcp4", hostport)
	if err != nil {
		return nil, err
	}
	s := &RTLTCP{addr: addr, ctx: ctx}
	s.resetState()
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewLocalRTLTCP launches rtl_tcp for the device serial (or index) and
// connects to it.
func NewLocalRTLTCP(ctx context.Context, ser string) (*RTLTCP, error) {
	// TODO: pick a free port so more than one dongle can be served.
	cmd := exec.CommandContext(ctx, "rtl_tcp", "-a", "127.0.0.1", "-p", "12345", "-d", ser)
	fpty, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("error starting rtl_tcp: %w", err)
	}
	go io.Copy(os.Stderr, fpty)
	glog.Infof("launched rtl_tcp for device %s", ser)
	s, err := DialRTLTCP(ctx, "127.0.0.1:12345")
	if err != nil {
		fpty.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}
	s.cmd, s.fpty = cmd, fpty
	return s, nil
}

func (s *RTLTCP) resetState() {
	s.center, s.rate, s.gain, s.manual = rtlDefaultCenterHz, rtlDefaultRate, 0, false
}

func (s *RTLTCP) connect() error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10), s.ctx)
	return backoff.Retry(func() error {
		conn := &rtlTCPConn{}
		if err := conn.Connect(s.addr); err != nil {
			glog.V(1).Infof("rtl_tcp %v: %v", s.addr, err)
			if errors.Is(err, ErrBadMagic) {
				return backoff.Permanent(err)
			}
			return err
		}
		s.conn, s.iqr, s.stale = conn, NewIQReader(conn), false
		s.active.Store(conn)
		return nil
	}, b)
}

func (s *RTLTCP) disconnect() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn, s.iqr = nil, nil
	s.active.Store(nil)
}

func (s *RTLTCP) ensureConn() error {
	if s.closed {
		return net.ErrClosed
	}
	if s.conn == nil || s.stale {
		s.disconnect()
		return s.connect()
	}
	return nil
}

func (s *RTLTCP) CenterFreq() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

func (s *RTLTCP) SetCenterFreq(hz float64) error {
	if hz < minFreqHz || hz > maxFreqHz {
		return ErrFrequencyOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if err := s.conn.SetCenterFreq(uint32(math.Round(hz))); err != nil {
		return err
	}
	s.center, s.stale = hz, true
	return nil
}

func (s *RTLTCP) SampleRate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *RTLTCP) SetSampleRate(rate uint32) error {
	if !IsValidRate(rate) {
		return ErrRateOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if err := s.conn.SetSampleRate(rate); err != nil {
		return err
	}
	s.rate, s.stale = rate, true
	return nil
}

func (s *RTLTCP) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *RTLTCP) SetGain(db float64) error {
	if db < 0 {
		return fmt.Errorf("invalid gain %.1fdB", db)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if err := s.conn.SetGainMode(true); err != nil {
		return err
	}
	if err := s.conn.SetGain(uint32(math.Round(db * 10))); err != nil {
		return err
	}
	s.gain, s.manual = db, true
	return nil
}

func (s *RTLTCP) SetManualGainEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if err := s.conn.SetGainMode(enabled); err != nil {
		return err
	}
	s.manual = enabled
	return nil
}

func (s *RTLTCP) ReadSamples(n int) ([]complex64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConn(); err != nil {
		return nil, err
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, err
	}
	return s.iqr.Read64(n)
}

// Reinitialize drops the connection, reconnects and returns the dongle to
// rtl_tcp's startup tuning.
func (s *RTLTCP) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	s.disconnect()
	s.resetState()
	if err := s.connect(); err != nil {
		return err
	}
	if err := s.conn.SetCenterFreq(rtlDefaultCenterHz); err != nil {
		return err
	}
	if err := s.conn.SetSampleRate(rtlDefaultRate); err != nil {
		return err
	}
	s.stale = true
	if err := s.conn.SetGainMode(false); err != nil {
		return err
	}
	// the RTL2832 digital AGC is off at rtl_tcp startup too
	return s.conn.SetAGCMode(false)
}

// Close may be called while another goroutine is blocked in ReadSamples.
func (s *RTLTCP) Close() error {
	if c := s.active.Load(); c != nil {
		c.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.disconnect()
	if s.cmd == nil {
		return nil
	}
	s.fpty.Close()
	s.cmd.Process.Kill()
	s.cmd.Wait()
	s.cmd = nil
	return nil
}
