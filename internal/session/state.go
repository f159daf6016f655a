// Package session holds the single-writer, many-reader stream state:
// cached SPS/PPS and the geometry derived from the most recent SPS.
// Grounded on spec.md §4.F; the teacher has no direct analogue (it
// never parses SPS), so the locking shape follows the RWMutex idiom
// used for shared state elsewhere in the teacher's hub
// (api/websocket.go's WebSocketHub.mu).
package session

import (
	"sync"

	"github.com/scrcpyhost/scrcpy-host/internal/h264"
)

const startCodePrefixLen = 4

var startCode4 = []byte{0x00, 0x00, 0x00, 0x01}

// Geometry is the derived, observable part of session state.
type Geometry struct {
	Width        int
	Height       int
	DeviceWidth  int
	DeviceHeight int
	IsLandscape  bool
}

// State is the shared stream state. All fields are guarded by mu;
// writes happen only from the ingest loop, reads from any number of
// client handlers.
type State struct {
	mu  sync.RWMutex
	sps []byte // start-code prefixed, nil until first SPS observed
	pps []byte // start-code prefixed, nil until first PPS observed
	geo Geometry
}

// New constructs session state for a device of the given physical
// screen size, captured once at probe time.
func New(deviceWidth, deviceHeight int) *State {
	return &State{
		geo: Geometry{DeviceWidth: deviceWidth, DeviceHeight: deviceHeight},
	}
}

// UpdateSPS stores raw (NAL header included, no start code) as the
// cached SPS and attempts to derive width/height from it. It reports
// whether (width, height, is_landscape) changed as a result, so the
// caller knows whether to publish a config-change notification.
//
// If the SPS fails to parse, the previous geometry is retained per
// spec.md §7 — only the cached bytes are replaced.
func (s *State) UpdateSPS(raw []byte) bool {
	framed := prependStartCode(raw)
	res, ok := h264.ParseSPSResolution(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sps = framed

	if !ok {
		return false
	}

	newLandscape := res.Width > res.Height
	changed := res.Width != s.geo.Width || res.Height != s.geo.Height || newLandscape != s.geo.IsLandscape
	s.geo.Width = res.Width
	s.geo.Height = res.Height
	s.geo.IsLandscape = newLandscape
	return changed
}

// UpdatePPS stores raw as the cached PPS; PPS carries no geometry.
func (s *State) UpdatePPS(raw []byte) {
	framed := prependStartCode(raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pps = framed
}

// Snapshot returns the currently cached SPS/PPS (nil if never
// observed) and the current geometry, all taken under a single read
// lock so the triple is internally consistent.
func (s *State) Snapshot() (sps, pps []byte, geo Geometry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sps, s.pps, s.geo
}

func prependStartCode(nal []byte) []byte {
	out := make([]byte, 0, startCodePrefixLen+len(nal))
	out = append(out, startCode4...)
	out = append(out, nal...)
	return out
}
