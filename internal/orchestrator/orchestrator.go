// Package orchestrator wires every component together and runs the
// main ingest loop (component J). Grounded on the teacher's main.go
// wiring order and service/scrcpy_client.go's Start sequence
// (push → forward → spawn → connectWithRetry → handshake), reordered
// and extended to match spec.md §4.J's ten-step startup sequence and
// original_source's scrcpy/server.rs (connect_control before
// read_video_header).
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrcpyhost/scrcpy-host/internal/agentsup"
	"github.com/scrcpyhost/scrcpy-host/internal/bridge"
	"github.com/scrcpyhost/scrcpy-host/internal/broadcast"
	"github.com/scrcpyhost/scrcpy-host/internal/control"
	"github.com/scrcpyhost/scrcpy-host/internal/hostconfig"
	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
	"github.com/scrcpyhost/scrcpy-host/internal/nal"
	"github.com/scrcpyhost/scrcpy-host/internal/port"
	"github.com/scrcpyhost/scrcpy-host/internal/session"
	"github.com/scrcpyhost/scrcpy-host/internal/wsserver"
)

const (
	videoConnectRetries = 5
	videoConnectDelay   = 500 * time.Millisecond
	demuxReadTimeout    = 10 * time.Second
	demuxBackoff        = time.Second
	portSearchSpan      = 100
)

// Orchestrator owns the full session lifecycle.
type Orchestrator struct {
	cfg hostconfig.Config
	log logrus.FieldLogger

	bridgeClient *bridge.Client
	supervisor   *agentsup.Supervisor
	state        *session.State
	broadcaster  *broadcast.Broadcaster
	mux          *control.Multiplexer
	httpSrv      *http.Server

	videoConn   net.Conn
	controlConn net.Conn
}

// New constructs an Orchestrator from resolved configuration.
func New(cfg hostconfig.Config, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		log:          log,
		bridgeClient: bridge.New(cfg.AdbPath),
	}
}

// Run executes spec.md §4.J's startup sequence and then the main
// ingest loop, blocking until ctx is cancelled or a fatal error
// occurs.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.verifyArtifacts(); err != nil {
		return err
	}

	serial, err := o.selectDevice()
	if err != nil {
		return err
	}
	o.log.Infof("selected device %s", serial)

	info, err := o.bridgeClient.Probe(serial)
	if err != nil {
		return err
	}
	o.log.Infof("probed device: %s %s %dx%d", info.Model, info.AndroidVersion, info.ScreenWidth, info.ScreenHeight)
	o.state = session.New(info.ScreenWidth, info.ScreenHeight)

	videoPort, controlPort, err := o.allocatePorts()
	if err != nil {
		return err
	}

	if err := o.deployAndStart(serial, videoPort, controlPort); err != nil {
		return err
	}
	defer o.supervisor.Stop(ctx, videoPort, controlPort)

	if err := o.bridgeClient.Forward(serial, videoPort, "scrcpy_video"); err != nil {
		return hosterr.Wrap(hosterr.KindBridge, err, "failed to forward video port")
	}
	if err := o.bridgeClient.Forward(serial, controlPort, "scrcpy_control"); err != nil {
		return hosterr.Wrap(hosterr.KindBridge, err, "failed to forward control port")
	}

	o.videoConn, err = dialWithRetry(videoPort, videoConnectRetries, videoConnectDelay)
	if err != nil {
		return hosterr.Wrap(hosterr.KindNetwork, err, "failed to connect video socket")
	}

	// Connect control before reading the video header: the device
	// agent does not flush its first byte until both sockets are
	// established when control is enabled, per spec.md §4.J step 6.
	o.controlConn, err = net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", controlPort), 2*time.Second)
	if err != nil {
		return hosterr.Wrap(hosterr.KindNetwork, err, "failed to connect control socket")
	}

	demux, err := nal.New(o.videoConn)
	if err != nil {
		return err
	}

	o.broadcaster = broadcast.New()
	o.mux = control.New(o.controlConn, o.log)

	server := wsserver.New(o.broadcaster, o.state, o.mux, info, o.log)
	wsPort, err := o.bindHTTP(server, ctx)
	if err != nil {
		return err
	}
	o.log.Infof("HTTP/WebSocket listener bound on port %d", wsPort)

	controlDone := make(chan error, 1)
	go func() { controlDone <- o.mux.Run() }()

	return o.mainLoop(ctx, demux, controlDone)
}

func (o *Orchestrator) verifyArtifacts() error {
	if _, err := os.Stat(o.cfg.ServerPath); err != nil {
		return hosterr.Wrap(hosterr.KindDeviceNotFound, err, "agent artifact not found")
	}
	if _, err := exec.LookPath(o.cfg.AdbPath); err != nil {
		return hosterr.Wrap(hosterr.KindDeviceNotFound, err, "bridge executable not found")
	}
	return nil
}

func (o *Orchestrator) selectDevice() (string, error) {
	devices, err := o.bridgeClient.ListDevices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", hosterr.New(hosterr.KindDeviceNotFound, "no devices found")
	}
	if o.cfg.Device == "" {
		return devices[0].Serial, nil
	}
	for _, d := range devices {
		if d.Serial == o.cfg.Device {
			return d.Serial, nil
		}
	}
	return "", hosterr.New(hosterr.KindDeviceNotFound, fmt.Sprintf("device %q not found among listed devices", o.cfg.Device))
}

// allocatePorts returns the caller-configured video/control loopback
// ports. Unlike --ws-port, these are not auto-searched, per spec.md
// §6 — they're expected to be free since only this orchestrator
// forwards to them.
func (o *Orchestrator) allocatePorts() (videoPort, controlPort uint16, err error) {
	return o.cfg.VideoPort, o.cfg.ControlPort, nil
}

func (o *Orchestrator) deployAndStart(serial string, videoPort, controlPort uint16) error {
	o.supervisor = agentsup.New(o.bridgeClient, serial, o.cfg.ServerPath, o.log)
	if err := o.supervisor.Deploy(); err != nil {
		return err
	}
	return o.supervisor.Start(agentsup.Params{
		LogLevel:           o.cfg.LogLevel,
		MaxSize:            o.cfg.MaxSize,
		BitRate:            o.cfg.BitRate,
		MaxFPS:             o.cfg.MaxFPS,
		IntraRefreshPeriod: o.cfg.IntraRefreshPeriod,
		VideoPort:          videoPort,
		ControlPort:        controlPort,
		AgentVersion:       "3.1",
	})
}

func (o *Orchestrator) bindHTTP(server *wsserver.Server, ctx context.Context) (uint16, error) {
	wsPort, err := port.FindAvailable(o.cfg.WSPort, portSearchSpan)
	if err != nil {
		return 0, err
	}

	o.httpSrv = &http.Server{Addr: fmt.Sprintf(":%d", wsPort), Handler: server.Router()}
	go func() {
		if err := o.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.log.Errorf("http server exited: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.httpSrv.Shutdown(shutdownCtx)
	}()

	return wsPort, nil
}

// mainLoop implements spec.md §4.J step 9: select over the next
// demultiplexed NAL (with a read timeout), a pending keyframe request,
// and shutdown. A single goroutine owns demux.Next() for the lifetime
// of the session — the demultiplexer is not safe for concurrent reads
// — and the 10-second timeout is applied as a read deadline on the
// underlying video socket rather than by racing a second reader.
func (o *Orchestrator) mainLoop(ctx context.Context, demux *nal.Demultiplexer, controlDone <-chan error) error {
	nextNAL := make(chan nalResult, 1)
	go o.pumpDemux(demux, nextNAL)

	for {
		select {
		case <-ctx.Done():
			o.mux.Close()
			return nil

		case err := <-controlDone:
			if err != nil {
				o.log.Errorf("control multiplexer failed, shutting down: %v", err)
				return err
			}
			return nil

		case <-o.broadcaster.KeyframeRequests():
			// The ingest loop has no direct way to force the device
			// agent to emit an IDR out of band; the next SPS/PPS/IDR
			// triple naturally satisfies any pending request because
			// Subscribe already replayed the cached parameter sets.

		case res, ok := <-nextNAL:
			if !ok {
				return nil
			}
			if res.err != nil {
				if res.err == io.EOF {
					o.log.Warn("video stream EOF, backing off")
				} else {
					o.log.Warnf("video stream read error, backing off: %v", res.err)
				}
				continue
			}
			o.handleUnit(res.unit)
		}
	}
}

type nalResult struct {
	unit nal.Unit
	err  error
}

// pumpDemux is the sole reader of demux for the session's lifetime. It
// sets a read deadline on the video socket before each read so that a
// stalled stream surfaces as a timeout error rather than blocking
// forever, then backs off after any error before retrying, per
// spec.md §4.J's failure semantics.
func (o *Orchestrator) pumpDemux(demux *nal.Demultiplexer, out chan<- nalResult) {
	defer close(out)
	for {
		if tc, ok := o.videoConn.(interface{ SetReadDeadline(time.Time) error }); ok {
			_ = tc.SetReadDeadline(time.Now().Add(demuxReadTimeout))
		}

		u, err := demux.Next()
		if err != nil {
			out <- nalResult{err: err}
			time.Sleep(demuxBackoff)
			continue
		}
		out <- nalResult{unit: u}
	}
}

func (o *Orchestrator) handleUnit(u nal.Unit) {
	framed := prependStartCode(u.Data)

	switch u.NALType() {
	case 7: // SPS
		changed := o.state.UpdateSPS(u.Data)
		if changed {
			o.publishConfig()
		}
		o.broadcaster.PublishFrame(framed)
	case 8: // PPS
		o.state.UpdatePPS(u.Data)
		o.broadcaster.PublishFrame(framed)
	default:
		o.broadcaster.PublishFrame(framed)
	}
}

func (o *Orchestrator) publishConfig() {
	_, _, geo := o.state.Snapshot()
	msg := fmt.Sprintf(
		`{"type":"config","width":%d,"height":%d,"device_width":%d,"device_height":%d,"is_landscape":%t}`,
		geo.Width, geo.Height, geo.DeviceWidth, geo.DeviceHeight, geo.IsLandscape,
	)
	o.broadcaster.PublishConfig([]byte(msg))
}

func prependStartCode(nalData []byte) []byte {
	out := make([]byte, 0, 4+len(nalData))
	out = append(out, 0x00, 0x00, 0x00, 0x01)
	out = append(out, nalData...)
	return out
}

func dialWithRetry(p uint16, attempts int, delay time.Duration) (net.Conn, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", p)
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return nil, lastErr
}
