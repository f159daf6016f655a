package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWMSize(t *testing.T) {
	w, h, err := ParseWMSize("Physical size: 1440x2960\n")
	require.NoError(t, err)
	require.Equal(t, 1440, w)
	require.Equal(t, 2960, h)
}

func TestParseWMSize_Malformed(t *testing.T) {
	_, _, err := ParseWMSize("nonsense output\n")
	require.Error(t, err)
}

func TestParseDeviceList_SkipsOfflineAndHeader(t *testing.T) {
	out := "List of devices attached\n" +
		"emulator-5554 device product:sdk model:Pixel\n" +
		"192.168.1.5:5555 offline\n" +
		"\n"
	devices := parseDeviceList(out)
	require.Len(t, devices, 1)
	require.Equal(t, "emulator-5554", devices[0].Serial)
}
