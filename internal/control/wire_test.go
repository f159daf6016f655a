package control

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeTouch_MouseModeDownMatchesSpecVector(t *testing.T) {
	// spec.md §8 scenario 4: {"type":"touch","action":0,"pointer_id":-1,
	// "x":0.5,"y":0.5,"pressure":1.0,"width":1920,"height":1080,"buttons":1}
	buf := EncodeTouch(Touch{
		Action:    ActionDown,
		PointerID: -1,
		NormX:     0.5,
		NormY:     0.5,
		Width:     1920,
		Height:    1080,
		Pressure:  1.0,
	})

	require.Len(t, buf, 32)
	require.Equal(t, byte(TypeTouch), buf[0])
	require.Equal(t, byte(ActionDown), buf[1])
	require.Equal(t, int64(-1), int64(binary.BigEndian.Uint64(buf[2:10])))
	require.Equal(t, uint32(960), binary.BigEndian.Uint32(buf[10:14]))
	require.Equal(t, uint32(540), binary.BigEndian.Uint32(buf[14:18]))
	require.Equal(t, uint16(1920), binary.BigEndian.Uint16(buf[18:20]))
	require.Equal(t, uint16(1080), binary.BigEndian.Uint16(buf[20:22]))
	require.Equal(t, uint16(0xFFFF), binary.BigEndian.Uint16(buf[22:24]))
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(buf[24:28])) // action_button
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(buf[28:32])) // buttons, down
}

func TestEncodeTouch_MouseModeUpReportsNoButtons(t *testing.T) {
	buf := EncodeTouch(Touch{Action: ActionUp, PointerID: -1, NormX: 0, NormY: 0, Width: 100, Height: 100})
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(buf[24:28])) // action_button still set
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(buf[28:32]))
}

func TestEncodeTouch_FingerModeReportsNoButtons(t *testing.T) {
	buf := EncodeTouch(Touch{Action: ActionDown, PointerID: 0, NormX: 0.25, NormY: 0.75, Width: 1000, Height: 2000})
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(buf[24:28]))
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(buf[28:32]))
	require.Equal(t, uint32(250), binary.BigEndian.Uint32(buf[10:14]))
	require.Equal(t, uint32(1500), binary.BigEndian.Uint32(buf[14:18]))
}

func TestEncodeKey_Layout(t *testing.T) {
	buf := EncodeKey(Key{Action: ActionDown, Keycode: 29, Repeat: 0, MetaState: 0x1000})
	require.Len(t, buf, 14)
	require.Equal(t, byte(TypeKey), buf[0])
	require.Equal(t, byte(ActionDown), buf[1])
	require.Equal(t, uint32(29), binary.BigEndian.Uint32(buf[2:6]))
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(buf[6:10]))
	require.Equal(t, uint32(0x1000), binary.BigEndian.Uint32(buf[10:14]))
}

func TestEncodeScroll_QuantizesUnitDeltas(t *testing.T) {
	buf := EncodeScroll(Scroll{
		NormX: 0.5, NormY: 0.5, Width: 1920, Height: 1080,
		HScroll: 1.0, VScroll: -1.0, Buttons: 0,
	})
	require.Len(t, buf, 21)
	require.Equal(t, byte(TypeScroll), buf[0])
	require.Equal(t, uint32(960), binary.BigEndian.Uint32(buf[1:5]))
	require.Equal(t, uint32(540), binary.BigEndian.Uint32(buf[5:9]))
	require.Equal(t, uint16(1920), binary.BigEndian.Uint16(buf[9:11]))
	require.Equal(t, uint16(1080), binary.BigEndian.Uint16(buf[11:13]))
	require.Equal(t, int16(2048), int16(binary.BigEndian.Uint16(buf[13:15])))
	require.Equal(t, int16(-2048), int16(binary.BigEndian.Uint16(buf[15:17])))
}

func TestEncodeScroll_ClampsToInt16Range(t *testing.T) {
	buf := EncodeScroll(Scroll{HScroll: 100, VScroll: -100})
	require.Equal(t, int16(32767), int16(binary.BigEndian.Uint16(buf[13:15])))
	require.Equal(t, int16(-32768), int16(binary.BigEndian.Uint16(buf[15:17])))
}

func TestEncodeText_Layout(t *testing.T) {
	buf := EncodeText("hi")
	require.Len(t, buf, 7)
	require.Equal(t, byte(TypeText), buf[0])
	require.Equal(t, uint32(2), binary.BigEndian.Uint32(buf[1:5]))
	require.Equal(t, "hi", string(buf[5:]))
}

func TestEncodeSetClipboard_Layout(t *testing.T) {
	buf := EncodeSetClipboard("copy", true, 42)
	require.Len(t, buf, 18)
	require.Equal(t, byte(TypeSetClipboard), buf[0])
	require.Equal(t, uint64(42), binary.BigEndian.Uint64(buf[1:9]))
	require.Equal(t, byte(1), buf[9])
	require.Equal(t, uint32(4), binary.BigEndian.Uint32(buf[10:14]))
	require.Equal(t, "copy", string(buf[14:]))
}
