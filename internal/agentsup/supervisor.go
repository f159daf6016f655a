// Package agentsup deploys and launches the device-side agent, mirroring
// the teacher's service/scrcpy_client.go and original_source's
// scrcpy/server.rs: push the artifact, start it over the bridge shell,
// tail its stderr, and kill it unconditionally on Stop or Drop-equivalent
// cleanup.
package agentsup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrcpyhost/scrcpy-host/internal/bridge"
	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

const deviceArtifactPath = "/data/local/tmp/scrcpy-agent.jar"

// Params are the caller-supplied launch parameters forwarded to the
// device agent as key=value tokens (spec.md §6).
type Params struct {
	LogLevel           string
	MaxSize            int
	BitRate            int
	MaxFPS             int
	IntraRefreshPeriod int
	VideoPort          uint16
	ControlPort        uint16
	AgentVersion       string
}

// tokens renders Params as the space-separated key=value list the agent
// expects, per spec.md §6's minimum required set.
func (p Params) tokens() []string {
	return []string{
		fmt.Sprintf("log_level=%s", p.LogLevel),
		fmt.Sprintf("max_size=%d", p.MaxSize),
		fmt.Sprintf("video_bit_rate=%d", p.BitRate),
		fmt.Sprintf("max_fps=%d", p.MaxFPS),
		fmt.Sprintf("video_codec_options=i-frame-interval=%d", p.IntraRefreshPeriod),
		"tunnel_forward=true",
		"send_device_meta=false",
		"send_frame_meta=false",
		"send_dummy_byte=true",
		"send_codec_meta=false",
		"raw_stream=true",
		"audio=false",
		"control=true",
		"cleanup=true",
		p.AgentVersion,
	}
}

// Supervisor deploys the agent file and runs it as a tracked child
// process over the bridge shell.
type Supervisor struct {
	bridgeClient *bridge.Client
	serial       string
	artifactPath string
	log          logrus.FieldLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

// New constructs a Supervisor for the given serial and local artifact.
func New(b *bridge.Client, serial, localArtifactPath string, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		bridgeClient: b,
		serial:       serial,
		artifactPath: localArtifactPath,
		log:          log,
	}
}

// Deploy pushes the agent artifact to the fixed device path.
func (s *Supervisor) Deploy() error {
	s.log.Infof("deploying agent artifact to %s", deviceArtifactPath)
	return s.bridgeClient.Push(s.serial, s.artifactPath, deviceArtifactPath)
}

// Start launches the agent shell command, tails stderr on a background
// goroutine, and reads at most one stdout line under a 3-second timeout
// as a readiness signal, then sleeps a fixed grace period.
func (s *Supervisor) Start(params Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := append([]string{
		fmt.Sprintf("CLASSPATH=%s", deviceArtifactPath),
		"app_process", "/", "com.genymobile.scrcpy.Server",
	}, params.tokens()...)

	cmd, err := s.bridgeClient.ShellBackground(s.serial, args)
	if err != nil {
		return hosterr.Wrap(hosterr.KindBridge, err, "failed to construct agent shell command")
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return hosterr.Wrap(hosterr.KindIO, err, "failed to open agent stderr pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return hosterr.Wrap(hosterr.KindIO, err, "failed to open agent stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return hosterr.Wrap(hosterr.KindBridge, err, "failed to start agent process")
	}
	s.cmd = cmd

	go s.tailStderr(stderr)

	s.waitForReadiness(stdout)

	return nil
}

// tailStderr drains the agent's stderr line by line, logging each line
// at warn level, until the pipe closes on process exit.
func (s *Supervisor) tailStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.log.Warnf("agent stderr: %s", scanner.Text())
	}
}

func (s *Supervisor) waitForReadiness(stdout io.Reader) {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			done <- result{line: scanner.Text()}
			return
		}
		done <- result{err: scanner.Err()}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.log.Warnf("agent produced no readiness line: %v", r.err)
		} else {
			s.log.Infof("agent readiness line: %s", r.line)
		}
	case <-time.After(3 * time.Second):
		s.log.Warn("timed out waiting for agent readiness line, continuing")
	}

	time.Sleep(300 * time.Millisecond)
}

// Stop kills the agent process and removes both port forwards,
// best-effort: failures are logged, never propagated, per spec.md §4.C.
func (s *Supervisor) Stop(ctx context.Context, videoPort, controlPort uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			s.log.Warnf("failed to kill agent process: %v", err)
		}
		_ = s.cmd.Wait()
	}

	if err := s.bridgeClient.ForwardRemove(s.serial, videoPort); err != nil {
		s.log.Warnf("failed to remove video port forward: %v", err)
	}
	if err := s.bridgeClient.ForwardRemove(s.serial, controlPort); err != nil {
		s.log.Warnf("failed to remove control port forward: %v", err)
	}
}
