// Command scrcpyhost is the orchestrator entrypoint: it parses flags,
// builds the shared logger, and runs the session until an OS signal or
// a fatal startup error, mirroring the teacher's main.go wiring order
// but replacing its gin.Default()/log.Println scaffolding with the
// cobra/viper/logrus stack the rest of this rebuild uses.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scrcpyhost/scrcpy-host/internal/applog"
	"github.com/scrcpyhost/scrcpy-host/internal/hostconfig"
	"github.com/scrcpyhost/scrcpy-host/internal/orchestrator"
)

func main() {
	cmd := &cobra.Command{
		Use:           "scrcpyhost",
		Short:         "Mirror and control an Android device over a browser WebSocket",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	v := hostconfig.BindFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg := hostconfig.FromViper(v)

		log := applog.New(cfg.LogLevel)
		orchLog := applog.Component(log, "orchestrator")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		orch := orchestrator.New(cfg, orchLog)
		if err := orch.Run(ctx); err != nil {
			orchLog.Errorf("session ended with error: %v", err)
			return err
		}
		return nil
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
