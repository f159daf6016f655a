// Package port finds free loopback TCP ports, the way original_source's
// utils/port.rs does, bounded so a misconfigured range fails fast
// instead of scanning forever.
package port

import (
	"fmt"
	"net"

	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

// IsAvailable reports whether a loopback TCP listener can bind the port.
func IsAvailable(p uint16) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", p))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// FindAvailable scans [base, base+span] in order and returns the first
// port that binds. Fails with hosterr.KindNoAvailablePort if the whole
// range is occupied.
func FindAvailable(base uint16, span uint16) (uint16, error) {
	end := base
	if uint32(base)+uint32(span) > 0xFFFF {
		end = 0xFFFF
	} else {
		end = base + span
	}

	for p := uint32(base); p <= uint32(end); p++ {
		if IsAvailable(uint16(p)) {
			return uint16(p), nil
		}
	}
	return 0, hosterr.New(hosterr.KindNoAvailablePort,
		fmt.Sprintf("no available port in [%d, %d]", base, end))
}

// FindAvailableN chains n independent searches, each one starting one
// above the previous result so the ports returned never collide.
func FindAvailableN(base uint16, n int, span uint16) ([]uint16, error) {
	ports := make([]uint16, 0, n)
	next := base
	for i := 0; i < n; i++ {
		p, err := FindAvailable(next, span)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
		if p == 0xFFFF {
			return nil, hosterr.New(hosterr.KindNoAvailablePort, "port range exhausted")
		}
		next = p + 1
	}
	return ports, nil
}
