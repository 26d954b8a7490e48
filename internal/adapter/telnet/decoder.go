package telnet

import (
	"io"
)

// Telnet command bytes (RFC 854).
const (
	cmdSE   byte = 240
	cmdSB   byte = 250
	cmdWILL byte = 251
	cmdWONT byte = 252
	cmdDO   byte = 253
	cmdDONT byte = 254
	cmdIAC  byte = 255
)

type decodeState int

const (
	stateData decodeState = iota
	stateIAC
	stateOption // after WILL/WONT/DO/DONT, expecting the option byte
	stateSub    // inside SB ... IAC SE
	stateSubIAC
)

// decoder strips telnet command sequences from a connection's byte stream.
// Every option the server offers or requests is refused: DO is answered with
// WONT and WILL with DONT, so the session stays a plain NVT line stream.
type decoder struct {
	r     io.Reader
	w     io.Writer
	state decodeState
	cmd   byte
	buf   []byte
}

func newDecoder(r io.Reader, w io.Writer) *decoder {
	return &decoder{r: r, w: w, buf: make([]byte, 4096)}
}

func (d *decoder) Read(p []byte) (int, error) {
	for {
		n, err := d.r.Read(d.buf[:min(len(p), len(d.buf))])
		out := 0
		for _, b := range d.buf[:n] {
			keep, werr := d.step(b)
			if werr != nil {
				return out, werr
			}
			if keep {
				p[out] = b
				out++
			}
		}
		// A chunk made only of commands yields nothing; keep reading rather
		// than return (0, nil).
		if out > 0 || err != nil || len(p) == 0 {
			return out, err
		}
	}
}

// step advances the state machine by one byte and reports whether b is data.
func (d *decoder) step(b byte) (bool, error) {
	switch d.state {
	case stateData:
		if b == cmdIAC {
			d.state = stateIAC
			return false, nil
		}
		return true, nil

	case stateIAC:
		switch b {
		case cmdIAC:
			d.state = stateData
			return true, nil // escaped 0xFF
		case cmdWILL, cmdWONT, cmdDO, cmdDONT:
			d.cmd = b
			d.state = stateOption
		case cmdSB:
			d.state = stateSub
		default:
			d.state = stateData // NOP, GA and friends
		}
		return false, nil

	case stateOption:
		d.state = stateData
		switch d.cmd {
		case cmdDO:
			return false, d.reply(cmdWONT, b)
		case cmdWILL:
			return false, d.reply(cmdDONT, b)
		}
		return false, nil

	case stateSub:
		if b == cmdIAC {
			d.state = stateSubIAC
		}
		return false, nil

	case stateSubIAC:
		if b == cmdSE {
			d.state = stateData
		} else {
			d.state = stateSub
		}
		return false, nil
	}
	return false, nil
}

func (d *decoder) reply(cmd, option byte) error {
	if d.w == nil {
		return nil
	}
	_, err := d.w.Write([]byte{cmdIAC, cmd, option})
	return err
}
