// Package bridge wraps the external device-bridge executable (an
// adb-equivalent): list devices, push files, run shell commands, and
// manage port forwards. Grounded on the teacher's adb/adb.go, trimmed
// to the operations spec.md §4.B names and generalized to a
// configurable executable path instead of a hardcoded "adb".
package bridge

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

// Device is one entry from `<bridge> devices -l`.
type Device struct {
	Serial string
	State  string
}

// Client invokes the bridge executable as blocking child processes.
type Client struct {
	Path string
}

// New returns a Client wrapping the bridge executable at path.
func New(path string) *Client {
	return &Client{Path: path}
}

func (c *Client) run(args ...string) (string, error) {
	cmd := exec.Command(c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", hosterr.Wrap(hosterr.KindBridge, err,
			fmt.Sprintf("%s %s failed: %s", c.Path, strings.Join(args, " "), stderr.String()))
	}
	return stdout.String(), nil
}

// ListDevices returns serials whose state is exactly "device" (online),
// per spec.md §4.B.
func (c *Client) ListDevices() ([]Device, error) {
	out, err := c.run("devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(out), nil
}

func parseDeviceList(output string) []Device {
	var devices []Device
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		if parts[1] != "device" {
			continue
		}
		devices = append(devices, Device{Serial: parts[0], State: parts[1]})
	}
	return devices
}

// Push copies localPath to remotePath on the device.
func (c *Client) Push(serial, localPath, remotePath string) error {
	_, err := c.run("-s", serial, "push", localPath, remotePath)
	return err
}

// Shell runs a command on the device and returns its stdout.
func (c *Client) Shell(serial, command string) (string, error) {
	return c.run("-s", serial, "shell", command)
}

// Forward maps a loopback TCP port to an abstract socket on the device.
func (c *Client) Forward(serial string, localPort uint16, remoteSocket string) error {
	_, err := c.run("-s", serial, "forward",
		fmt.Sprintf("tcp:%d", localPort),
		fmt.Sprintf("localabstract:%s", remoteSocket))
	return err
}

// ForwardRemove removes a previously established forward. Best-effort:
// callers of Stop() log failures rather than propagate them, per
// spec.md §4.C.
func (c *Client) ForwardRemove(serial string, localPort uint16) error {
	_, err := c.run("-s", serial, "forward", "--remove", fmt.Sprintf("tcp:%d", localPort))
	return err
}

// ShellBackground builds, but does not start, a shell command, returning
// the *exec.Cmd so the caller (the agent supervisor) can attach pipes,
// start it and manage the process.
func (c *Client) ShellBackground(serial string, args []string) (*exec.Cmd, error) {
	full := append([]string{"-s", serial, "shell"}, args...)
	cmd := exec.Command(c.Path, full...)
	return cmd, nil
}
