package orchestrator

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/scrcpyhost/scrcpy-host/internal/bridge"
	"github.com/scrcpyhost/scrcpy-host/internal/broadcast"
	"github.com/scrcpyhost/scrcpy-host/internal/hostconfig"
	"github.com/scrcpyhost/scrcpy-host/internal/nal"
	"github.com/scrcpyhost/scrcpy-host/internal/session"
)

func testOrchestrator() *Orchestrator {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Orchestrator{
		cfg:          hostconfig.Config{VideoPort: 27183, ControlPort: 27184},
		log:          log,
		bridgeClient: bridge.New("adb"),
	}
}

func TestAllocatePorts_ReturnsConfiguredPortsUnchanged(t *testing.T) {
	o := testOrchestrator()
	video, control, err := o.allocatePorts()
	require.NoError(t, err)
	require.Equal(t, uint16(27183), video)
	require.Equal(t, uint16(27184), control)
}

// sampleSPS is the same hand-derived 1280x720 baseline SPS vector used
// by internal/h264 and internal/session's tests.
func sampleSPS() []byte {
	return []byte{0x67, 0x42, 0xC0, 0x1E, 0xF4, 0x02, 0x80, 0x2D, 0xC0}
}

func TestHandleUnit_SPSChangePublishesConfig(t *testing.T) {
	o := testOrchestrator()
	o.state = session.New(1280, 720)
	o.broadcaster = broadcast.New()

	// No SPS/PPS observed yet, so Subscribe replays nothing onto the
	// new frame channel.
	sub := o.broadcaster.Subscribe(o.state)

	o.handleUnit(nal.Unit{Type: nal.Config, Data: sampleSPS()})

	select {
	case <-sub.Frames():
	case <-time.After(time.Second):
		t.Fatal("expected frame publish for SPS unit")
	}
	select {
	case <-sub.Configs():
	case <-time.After(time.Second):
		t.Fatal("expected config publish on first SPS observation")
	}
}

func TestPrependStartCode_PrefixesFourByteCode(t *testing.T) {
	out := prependStartCode([]byte{0xAA, 0xBB})
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0xAA, 0xBB}, out)
}

func TestDialWithRetry_SucceedsOnListeningPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	conn, err := dialWithRetry(port, 3, 50*time.Millisecond)
	require.NoError(t, err)
	conn.Close()
}

func TestDialWithRetry_FailsAfterExhaustingAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	ln.Close() // nothing is listening anymore

	_, err = dialWithRetry(port, 2, 10*time.Millisecond)
	require.Error(t, err)
}
