package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadUE_Vectors(t *testing.T) {
	cases := []struct {
		name string
		b    byte
		want uint32
	}{
		{"single one bit", 0xFF, 0}, // "1" + padding
		{"010 prefix", 0x5F, 1},     // "010" + padding
		{"011 prefix", 0x7F, 2},     // "011" + padding
		{"00100 prefix", 0x27, 3},   // "00100" + padding
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := newBitReader([]byte{c.b})
			got, ok := r.readUE()
			require.True(t, ok)
			require.Equal(t, c.want, got)
		})
	}
}

func TestReadUE_TruncatedReturnsNotOK(t *testing.T) {
	r := newBitReader([]byte{0x00})
	_, ok := r.readUE()
	require.False(t, ok)
}

func TestParseSPSResolution_Baseline1280x720(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0xF4, 0x02, 0x80, 0x2D, 0xC0}
	res, ok := ParseSPSResolution(sps)
	require.True(t, ok)
	require.Equal(t, 1280, res.Width)
	require.Equal(t, 720, res.Height)
}

// TestParseSPSResolution_FullHD1920x1080 covers the common case where
// the coded height (1088, a multiple of 16 macroblocks) is cropped down
// to the true 1080p frame height via frame_cropping_flag. The coded
// width (1920) is already macroblock-aligned, so only crop_bottom is
// non-zero.
func TestParseSPSResolution_FullHD1920x1080(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0xF4, 0x03, 0xC0, 0x11, 0x3F, 0x28}
	res, ok := ParseSPSResolution(sps)
	require.True(t, ok)
	require.Equal(t, 1920, res.Width)
	require.Equal(t, 1080, res.Height)
}

// TestParseSPSResolution_Portrait1080x2400 covers the opposite crop
// axis: coded width 1088 cropped to 1080 via crop_right, with an
// already macroblock-aligned coded height of 2400.
func TestParseSPSResolution_Portrait1080x2400(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0xF4, 0x02, 0x20, 0x09, 0x6F, 0x2E}
	res, ok := ParseSPSResolution(sps)
	require.True(t, ok)
	require.Equal(t, 1080, res.Width)
	require.Equal(t, 2400, res.Height)
}

// TestParseSPSResolution_HighProfileCroppedMatchesTrueSize exercises the
// High profile extension fields (chroma_format_idc, bit depths,
// qpprime_y_zero_transform_bypass_flag, seq_scaling_matrix_present_flag
// left unset) together with frame cropping: the SPS codes 1920x1088
// (profile_idc 100) and crops 8 rows off the bottom, so the parsed
// resolution must report the true 1920x1080 frame, not the coded size.
func TestParseSPSResolution_HighProfileCroppedMatchesTrueSize(t *testing.T) {
	sps := []byte{0x67, 0x64, 0xC0, 0x28, 0xAC, 0xE8, 0x07, 0x80, 0x22, 0x7E, 0x50}
	res, ok := ParseSPSResolution(sps)
	require.True(t, ok)
	require.Equal(t, 1920, res.Width)
	require.Equal(t, 1080, res.Height)
}

func TestParseSPSResolution_TooShortIsMalformed(t *testing.T) {
	_, ok := ParseSPSResolution([]byte{0x67, 0x42, 0xC0})
	require.False(t, ok)
}

func TestParseSPSResolution_TruncatedMidFieldIsMalformed(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0xF4}
	_, ok := ParseSPSResolution(sps)
	require.False(t, ok)
}
