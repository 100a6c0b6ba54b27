package radio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

var ErrBadMagic = errors.New("bad dongle magic")

var dongleMagic = [...]byte{'R', 'T', 'L', '0'}

// rtlTCPConn contains dongle information and an embedded tcp connection to the spectrum server.
type rtlTCPConn struct {
	*net.TCPConn
	Info DongleInfo
}

// Connect dials the spectrum server at addr and reads the dongle header. The
// caller is responsible for closing the connection.
func (c *rtlTCPConn) Connect(addr *net.TCPAddr) (err error) {
	if c.TCPConn, err = net.DialTCP("tcp", nil, addr); err != nil {
		return fmt.Errorf("error connecting to spectrum server: %w", err)
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()
	if err = binary.Read(c.TCPConn, binary.BigEndian, &c.Info); err != nil {
		return fmt.Errorf("error getting dongle information: %w", err)
	}
	if !c.Info.Valid() {
		return fmt.Errorf("%w: %q", ErrBadMagic, c.Info.Magic)
	}
	return nil
}

// DongleInfo is data pulled from the server on connection.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32
}

// Valid checks the received magic number matches 'RTL0'.
func (d DongleInfo) Valid() bool {
	return d.Magic == dongleMagic
}

type command struct {
	Command   uint8
	Parameter uint32
}

// Command constants defined in rtl_tcp.c
const (
	cmdCenterFreq = iota + 1
	cmdSampleRate
	cmdTunerGainMode
	cmdTunerGain
	cmdFreqCorrection
	cmdTunerIfGain
	cmdTestMode
	cmdAGCMode
)

func (c *rtlTCPConn) do(cmd uint8, v uint32) error {
	return binary.Write(c.TCPConn, binary.BigEndian, command{cmd, v})
}

func (c *rtlTCPConn) SetCenterFreq(freq uint32) error {
	return c.do(cmdCenterFreq, freq)
}

func (c *rtlTCPConn) SetSampleRate(rate uint32) error {
	return c.do(cmdSampleRate, rate)
}

// SetGain takes tenths of dB (197 => 19.7dB).
func (c *rtlTCPConn) SetGain(gain uint32) error {
	return c.do(cmdTunerGain, gain)
}

// SetGainMode selects manual gain when true; false hands gain to the tuner AGC.
func (c *rtlTCPConn) SetGainMode(manual bool) error {
	if manual {
		return c.do(cmdTunerGainMode, 1)
	}
	return c.do(cmdTunerGainMode, 0)
}

// SetAGCMode toggles the RTL2832 digital AGC, separate from the tuner gain mode.
func (c *rtlTCPConn) SetAGCMode(state bool) error {
	if state {
		return c.do(cmdAGCMode, 1)
	}
	return c.do(cmdAGCMode, 0)
}
