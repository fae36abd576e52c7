// Package rtl_adsb reads demodulated Mode S frames from an rtl_adsb
// child process, one hex frame per line.
package rtl_adsb

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
)

// ADSBMsg is one raw 112-bit frame. ParseFrame accepts only full-length
// lines, so short (56-bit) replies are not passed on.
type ADSBMsg [14]byte

// MessageHandler is called for every well-formed frame, on the reader
// goroutine.
type MessageHandler func(ADSBMsg)

// StartReceive spawns the rtl_adsb binary and feeds its output to the
// handler until the returned stop function is called or the process
// exits.
func StartReceive(execPath string, handler MessageHandler) (func(), error) {
	cmd := exec.Command(execPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("rtl_adsb pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("rtl_adsb start: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if m, ok := ParseFrame(scanner.Text()); ok {
				handler(m)
			}
		}
		cmd.Wait()
	}()

	return func() {
		cmd.Process.Kill()
	}, nil
}

// ParseFrame parses one rtl_adsb output line of the form
// *112233445566778899AABBCCDDEE; into a raw frame.
func ParseFrame(line string) (ADSBMsg, bool) {
	var m ADSBMsg

	// 28 hex digits framed by '*' and ';'
	if len(line) != 30 || line[0] != '*' || line[29] != ';' {
		return m, false
	}

	for i := 0; i < len(m); i++ {
		b, err := strconv.ParseUint(line[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return m, false
		}
		m[i] = byte(b)
	}

	return m, true
}
