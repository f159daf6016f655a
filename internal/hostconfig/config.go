// Package hostconfig defines the orchestrator's CLI flags and binds
// them to SCRCPYHOST_*-prefixed environment variables. Grounded on
// babelcloud/gbox's packages/cli/config/config.go (viper.New + SetDefault
// + AutomaticEnv + BindEnv), adapted from a yaml-config-file-backed
// viper instance to a pure flags+env one since the orchestrator has no
// config file of its own in spec.md §6.
package hostconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of orchestrator settings, spec.md §6.
type Config struct {
	AdbPath            string
	ServerPath         string
	Device             string
	MaxSize            int
	BitRate            int
	MaxFPS             int
	WSPort             uint16
	VideoPort          uint16
	ControlPort        uint16
	IntraRefreshPeriod int
	LogLevel           string
}

const envPrefix = "SCRCPYHOST"

// BindFlags registers spec.md §6's flag list on cmd and returns a
// viper instance bound to both the flags and SCRCPYHOST_* environment
// variables, mirroring the gbox CLI's viper.BindEnv pattern.
func BindFlags(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	flags.String("adb-path", "adb", "path to the device-bridge executable")
	flags.String("server-path", "", "path to the device agent artifact")
	flags.String("device", "", "device serial; default: first listed")
	flags.Int("max-size", 1080, "maximum streamed dimension, in pixels")
	flags.Int("bit-rate", 8_000_000, "video bit rate, in bits per second")
	flags.Int("max-fps", 60, "maximum capture frame rate")
	flags.Uint16("ws-port", 8080, "HTTP/WebSocket listen port (auto-search up to +100)")
	flags.Uint16("video-port", 27183, "loopback video socket port")
	flags.Uint16("control-port", 27184, "loopback control socket port")
	flags.Int("intra-refresh-period", 10, "IDR interval, in seconds")
	flags.String("log-level", "info", "one of trace, debug, info, warn, error")

	bind := []string{
		"adb-path", "server-path", "device", "max-size", "bit-rate", "max-fps",
		"ws-port", "video-port", "control-port", "intra-refresh-period", "log-level",
	}
	for _, name := range bind {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("hostconfig: failed to bind flag %q: %v", name, err))
		}
	}

	return v
}

// FromViper reads the resolved settings out of v, after cobra has
// parsed flags (so flag > env > default precedence applies).
func FromViper(v *viper.Viper) Config {
	return Config{
		AdbPath:            v.GetString("adb-path"),
		ServerPath:         v.GetString("server-path"),
		Device:             v.GetString("device"),
		MaxSize:            v.GetInt("max-size"),
		BitRate:            v.GetInt("bit-rate"),
		MaxFPS:             v.GetInt("max-fps"),
		WSPort:             uint16(v.GetUint("ws-port")),
		VideoPort:          uint16(v.GetUint("video-port")),
		ControlPort:        uint16(v.GetUint("control-port")),
		IntraRefreshPeriod: v.GetInt("intra-refresh-period"),
		LogLevel:           v.GetString("log-level"),
	}
}
