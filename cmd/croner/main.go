package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"croner/internal/app"
	"croner/internal/uninstall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type flags struct {
	config    string
	settings  string
	print     string
	logLevel  string
	uninstall bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "croner",
		Short:         "Run commands on cron schedules read from a hot-reloaded job file",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.uninstall {
				return uninstall.Run(uninstall.Options{Env: uninstall.CurrentEnv(), Out: stdout})
			}
			return run(cmd.Context(), f, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("croner {{.Version}}\n")

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "config.croner", "path to the job file")
	fl.StringVar(&f.print, "print", "true", "print job output; any value but false enables it")
	fl.Lookup("print").NoOptDefVal = "true"
	fl.StringVar(&f.settings, "settings", "", "optional YAML or JSON daemon settings file")
	fl.StringVar(&f.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	fl.BoolVar(&f.uninstall, "uninstall", false, "remove installed croner binaries and exit")
	return cmd
}

func run(ctx context.Context, f flags, stdout io.Writer) error {
	a, err := app.New(app.Options{
		ConfigPath:   f.config,
		SettingsPath: f.settings,
		Print:        f.print != "false",
		LogLevel:     f.logLevel,
		Stdout:       stdout,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		var le *app.LoadError
		switch {
		case errors.Is(err, uninstall.ErrCancelled):
		case errors.As(err, &le):
			fmt.Fprintln(os.Stderr, "Failed to load config:", le.Err)
		default:
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		os.Exit(1)
	}
}
