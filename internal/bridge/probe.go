package bridge

import (
	"strconv"
	"strings"

	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

// DeviceInfo is the snapshot captured once at session start (spec.md
// §4.J step 3), exposed read-only over the REST status surface.
type DeviceInfo struct {
	Serial         string
	Model          string
	AndroidVersion string
	ScreenWidth    int
	ScreenHeight   int
}

// Probe gathers model, OS version and physical screen size for serial.
func (c *Client) Probe(serial string) (DeviceInfo, error) {
	info := DeviceInfo{Serial: serial}

	if model, err := c.Shell(serial, "getprop ro.product.model"); err == nil {
		info.Model = strings.TrimSpace(model)
	}
	if version, err := c.Shell(serial, "getprop ro.build.version.release"); err == nil {
		info.AndroidVersion = strings.TrimSpace(version)
	}

	sizeOut, err := c.Shell(serial, "wm size")
	if err != nil {
		return info, err
	}
	w, h, err := ParseWMSize(sizeOut)
	if err != nil {
		return info, err
	}
	info.ScreenWidth, info.ScreenHeight = w, h
	return info, nil
}

// ParseWMSize parses `wm size` output of the form
// "Physical size: 1440x2960\n" into (width, height). Malformed input
// yields a hosterr.KindParse error, per spec.md §8.
func ParseWMSize(output string) (int, int, error) {
	trimmed := strings.TrimSpace(output)
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefix(line, "Physical size:")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		parts := strings.SplitN(rest, "x", 2)
		if len(parts) != 2 {
			continue
		}
		w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return 0, 0, hosterr.New(hosterr.KindParse, "invalid wm size dimensions: "+line)
		}
		return w, h, nil
	}
	return 0, 0, hosterr.New(hosterr.KindParse, "failed to parse wm size output: "+trimmed)
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
