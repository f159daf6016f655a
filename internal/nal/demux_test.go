package nal

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func stream(units ...[]byte) []byte {
	var out []byte
	out = append(out, 0xAA) // dummy byte
	for _, u := range units {
		out = append(out, 0x00, 0x00, 0x01)
		out = append(out, u...)
	}
	return out
}

func TestDemultiplexer_SplitsSPSPPSIDR(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x0a, 0xf8, 0x41, 0xa2}
	pps := []byte{0x68, 0xce, 0x38, 0x80}
	idr := []byte{0x65, 0x88, 0x84, 0x00, 0x10}

	d, err := New(bytes.NewReader(stream(sps, pps, idr)))
	require.NoError(t, err)

	u1, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, Config, u1.Type)
	require.Equal(t, sps, u1.Data)
	require.True(t, u1.IsKeyframe())

	u2, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, Config, u2.Type)
	require.Equal(t, pps, u2.Data)

	u3, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, Video, u3.Type)
	require.Equal(t, idr, u3.Data)
	require.True(t, u3.IsKeyframe())

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDemultiplexer_FourByteStartCodeHandledTransparently(t *testing.T) {
	// A 4-byte 00 00 00 01 start code is just a 00 00 01 with a
	// leading 00 absorbed into the previous NAL's tail (or discarded
	// as garbage if it is the first one), per spec.md §4.D.
	nal := []byte{0x41, 0x9a, 0x02}
	var raw []byte
	raw = append(raw, 0xAA)
	raw = append(raw, 0x00, 0x00, 0x00, 0x01)
	raw = append(raw, nal...)

	d, err := New(bytes.NewReader(raw))
	require.NoError(t, err)

	u, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, nal, u.Data)
}

func TestDemultiplexer_NonKeyframeSliceNotFlaggedKeyframe(t *testing.T) {
	pframe := []byte{0x41, 0x9a, 0x02}
	d, err := New(bytes.NewReader(stream(pframe)))
	require.NoError(t, err)

	u, err := d.Next()
	require.NoError(t, err)
	require.False(t, u.IsKeyframe())
	require.Equal(t, Video, u.Type)
}

func TestDemultiplexer_EmptyStreamYieldsImmediateEOF(t *testing.T) {
	d, err := New(bytes.NewReader([]byte{0xAA}))
	require.NoError(t, err)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDemultiplexer_OverlongNALWithoutTerminatorErrors(t *testing.T) {
	var raw []byte
	raw = append(raw, 0xAA)
	raw = append(raw, 0x00, 0x00, 0x01)
	raw = append(raw, 0x65)
	raw = append(raw, bytes.Repeat([]byte{0x11}, maxBufferBytes+1)...)

	d, err := New(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = d.Next()
	require.Error(t, err)
}
